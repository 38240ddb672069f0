package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tyemirov/certtrust/pkg/logging"
)

const (
	lineSeparator              = "\n"
	jsonMessageKey             = "msg"
	jsonLevelKey               = "level"
	jsonErrorKey               = "error"
	fieldKeyAlias              = "alias"
	fieldKeyOrigin             = "origin"
	fieldKeyCount              = "count"
	fieldKeyPermanent          = "permanent"
	fieldValueAlias            = "3f2a9c"
	fieldValueOrigin           = "temporary"
	fieldValueCount            = 2
	consoleFieldTemplate       = "%s=\"%s\""
	consoleErrorTemplate       = "error=\"%s\""
	messageCertificateAdded    = "certificate added"
	messageCertificatesPurged  = "certificates purged"
	messageKeystoreUnreadable  = "keystore unreadable"
	messageCertificateExpiring = "certificate expiring"
	structuredErrorValue       = "bad password"
)

func TestNormalizeTypeHandlesVariants(t *testing.T) {
	testCases := []struct {
		testName     string
		rawValue     string
		expectedType string
		expectErr    bool
	}{
		{testName: "EmptyValueDefaultsToConsole", rawValue: "", expectedType: logging.TypeConsole},
		{testName: "WhitespaceDefaultsToConsole", rawValue: "   ", expectedType: logging.TypeConsole},
		{testName: "LowercaseConsole", rawValue: "console", expectedType: logging.TypeConsole},
		{testName: "MixedCaseJSON", rawValue: " JsOn ", expectedType: logging.TypeJSON},
		{testName: "UnsupportedType", rawValue: "text", expectErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.testName, func(t *testing.T) {
			actualType, err := logging.NormalizeType(testCase.rawValue)
			if testCase.expectErr {
				if err == nil {
					t.Fatalf("expected error for value %q", testCase.rawValue)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize returned unexpected error: %v", err)
			}
			if actualType != testCase.expectedType {
				t.Fatalf("expected %s, got %s", testCase.expectedType, actualType)
			}
		})
	}
}

func TestServiceLogsConsoleFriendlyMessages(t *testing.T) {
	logBuffer := &bytes.Buffer{}
	loggingService, err := logging.NewWriterService(logging.TypeConsole, logBuffer)
	if err != nil {
		t.Fatalf("failed to create logging service: %v", err)
	}

	loggingService.Info(messageCertificateAdded, logging.String(fieldKeyAlias, fieldValueAlias), logging.Bool(fieldKeyPermanent, false))
	loggingService.Warn(messageCertificateExpiring, logging.String(fieldKeyAlias, fieldValueAlias))
	consoleError := errors.New(structuredErrorValue)
	loggingService.Error(messageKeystoreUnreadable, consoleError)
	if syncErr := loggingService.Sync(); syncErr != nil {
		t.Fatalf("failed to sync console logger: %v", syncErr)
	}

	consoleLogLines := strings.Split(strings.TrimSuffix(logBuffer.String(), lineSeparator), lineSeparator)
	if len(consoleLogLines) != 3 {
		t.Fatalf("expected three console log lines, got %d: %q", len(consoleLogLines), logBuffer.String())
	}

	infoLine := consoleLogLines[0]
	expectedField := fmt.Sprintf(consoleFieldTemplate, fieldKeyAlias, fieldValueAlias)
	if !strings.HasPrefix(infoLine, messageCertificateAdded) {
		t.Fatalf("info line missing message %q: %s", messageCertificateAdded, infoLine)
	}
	if !strings.Contains(infoLine, expectedField) || !strings.Contains(infoLine, "permanent=false") {
		t.Fatalf("info line missing fields: %s", infoLine)
	}

	if !strings.HasPrefix(consoleLogLines[1], "WARN: "+messageCertificateExpiring) {
		t.Fatalf("warn line missing level prefix: %s", consoleLogLines[1])
	}

	errorLine := consoleLogLines[2]
	expectedErrorField := fmt.Sprintf(consoleErrorTemplate, consoleError.Error())
	if !strings.HasPrefix(errorLine, "ERROR: "+messageKeystoreUnreadable) {
		t.Fatalf("error line missing message %q: %s", messageKeystoreUnreadable, errorLine)
	}
	if !strings.Contains(errorLine, expectedErrorField) {
		t.Fatalf("error line missing error field %q: %s", expectedErrorField, errorLine)
	}
}

func TestServiceLogsStructuredMessages(t *testing.T) {
	logBuffer := &bytes.Buffer{}
	jsonEncoderConfig := zap.NewProductionEncoderConfig()
	jsonEncoderConfig.MessageKey = jsonMessageKey
	jsonEncoderConfig.LevelKey = jsonLevelKey
	jsonEncoderConfig.TimeKey = ""
	jsonEncoderConfig.CallerKey = ""
	jsonEncoderConfig.StacktraceKey = ""
	jsonCore := zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig), zapcore.AddSync(logBuffer), zapcore.InfoLevel)
	loggingService, err := logging.NewServiceWithLogger(logging.TypeJSON, zap.New(jsonCore))
	if err != nil {
		t.Fatalf("failed to create structured logging service: %v", err)
	}

	scopedService := loggingService.With(logging.String(fieldKeyOrigin, fieldValueOrigin))
	scopedService.Info(messageCertificatesPurged, logging.Int(fieldKeyCount, fieldValueCount))
	structuredError := errors.New(structuredErrorValue)
	loggingService.Error(messageKeystoreUnreadable, structuredError)
	if syncErr := loggingService.Sync(); syncErr != nil {
		t.Fatalf("failed to sync structured logger: %v", syncErr)
	}

	structuredLogLines := strings.Split(strings.TrimSpace(logBuffer.String()), lineSeparator)
	if len(structuredLogLines) != 2 {
		t.Fatalf("expected two structured log lines, got %d", len(structuredLogLines))
	}

	infoEntry := map[string]any{}
	if err := json.Unmarshal([]byte(structuredLogLines[0]), &infoEntry); err != nil {
		t.Fatalf("failed to parse info entry: %v", err)
	}
	assertJSONField(t, infoEntry, jsonMessageKey, messageCertificatesPurged)
	assertJSONField(t, infoEntry, jsonLevelKey, "info")
	assertJSONField(t, infoEntry, fieldKeyCount, float64(fieldValueCount))
	assertJSONField(t, infoEntry, fieldKeyOrigin, fieldValueOrigin)

	errorEntry := map[string]any{}
	if err := json.Unmarshal([]byte(structuredLogLines[1]), &errorEntry); err != nil {
		t.Fatalf("failed to parse error entry: %v", err)
	}
	assertJSONField(t, errorEntry, jsonMessageKey, messageKeystoreUnreadable)
	assertJSONField(t, errorEntry, jsonLevelKey, "error")
	assertJSONField(t, errorEntry, jsonErrorKey, structuredError.Error())
	if _, exists := errorEntry[fieldKeyOrigin]; exists {
		t.Fatalf("scoped field leaked into parent service: %v", errorEntry)
	}
}

func TestNewServiceWithLoggerRejectsInvalidInput(t *testing.T) {
	if _, err := logging.NewServiceWithLogger("xml", zap.NewNop()); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := logging.NewServiceWithLogger(logging.TypeJSON, nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
	if logging.NewTestService("bogus").Type() != logging.TypeConsole {
		t.Fatalf("expected test service to fall back to console")
	}
}

func assertJSONField(t *testing.T, entry map[string]any, key string, expected any) {
	t.Helper()
	value, exists := entry[key]
	if !exists {
		t.Fatalf("missing key %q", key)
	}
	if value != expected {
		t.Fatalf("expected %q for key %q, got %v", expected, key, value)
	}
}
