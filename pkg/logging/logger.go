package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	TypeConsole = "CONSOLE"
	TypeJSON    = "JSON"

	fieldKeyError = "error"
)

// Field represents a logging attribute.
type Field struct {
	Key   string
	Value any
}

// String creates a string Field.
func String(key string, value string) Field {
	return Field{Key: key, Value: value}
}

// Strings creates a []string Field.
func Strings(key string, value []string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int Field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool Field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Time creates a time.Time Field.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a time.Duration Field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// ErrorField creates an error Field using the key "error".
func ErrorField(err error) Field {
	return Field{Key: fieldKeyError, Value: err}
}

// NormalizeType validates and normalizes a logging type string.
func NormalizeType(rawValue string) (string, error) {
	sanitized := strings.ToUpper(strings.TrimSpace(rawValue))
	if sanitized == "" {
		sanitized = TypeConsole
	}
	switch sanitized {
	case TypeConsole, TypeJSON:
		return sanitized, nil
	default:
		return "", fmt.Errorf("unsupported logging type %s", rawValue)
	}
}

// Service provides logging with console and JSON modes. Console mode writes
// human readable lines with key=value pairs; JSON mode writes structured entries.
type Service struct {
	loggingType string
	logger      *zap.Logger
	baseFields  []Field
}

// NewService constructs a logging Service using the provided type.
func NewService(loggingType string) (*Service, error) {
	normalized, err := NormalizeType(loggingType)
	if err != nil {
		return nil, err
	}
	logger, err := newZapLogger(normalized, os.Stderr)
	if err != nil {
		return nil, err
	}
	return NewServiceWithLogger(normalized, logger)
}

// NewServiceWithLogger constructs a Service using an existing zap logger.
func NewServiceWithLogger(loggingType string, logger *zap.Logger) (*Service, error) {
	normalized, err := NormalizeType(loggingType)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("zap logger is required")
	}
	return &Service{loggingType: normalized, logger: logger}, nil
}

// NewTestService returns a Service that discards output.
func NewTestService(loggingType string) *Service {
	normalized, err := NormalizeType(loggingType)
	if err != nil {
		normalized = TypeConsole
	}
	return &Service{loggingType: normalized, logger: zap.NewNop()}
}

// NewWriterService constructs a Service writing to writer, which is useful for capturing output.
func NewWriterService(loggingType string, writer io.Writer) (*Service, error) {
	normalized, err := NormalizeType(loggingType)
	if err != nil {
		return nil, err
	}
	logger, err := newZapLogger(normalized, zapcore.AddSync(writer))
	if err != nil {
		return nil, err
	}
	return NewServiceWithLogger(normalized, logger)
}

// Type returns the current logging type.
func (service *Service) Type() string {
	return service.loggingType
}

// With returns a Service that adds fields to every entry.
func (service *Service) With(fields ...Field) *Service {
	combined := make([]Field, 0, len(service.baseFields)+len(fields))
	combined = append(combined, service.baseFields...)
	combined = append(combined, fields...)
	return &Service{loggingType: service.loggingType, logger: service.logger, baseFields: combined}
}

// Info writes an informational message.
func (service *Service) Info(message string, fields ...Field) {
	service.log(zapcore.InfoLevel, message, nil, fields...)
}

// Warn writes a warning message.
func (service *Service) Warn(message string, fields ...Field) {
	service.log(zapcore.WarnLevel, message, nil, fields...)
}

// Error writes an error message with the provided error.
func (service *Service) Error(message string, err error, fields ...Field) {
	service.log(zapcore.ErrorLevel, message, err, fields...)
}

// Sync flushes buffered log entries.
func (service *Service) Sync() error {
	return service.logger.Sync()
}

func (service *Service) log(level zapcore.Level, message string, err error, fields ...Field) {
	allFields := make([]Field, 0, len(service.baseFields)+len(fields)+1)
	allFields = append(allFields, service.baseFields...)
	allFields = append(allFields, fields...)
	if err != nil {
		allFields = append(allFields, ErrorField(err))
	}
	if service.loggingType == TypeConsole {
		formatted := formatConsoleMessage(level, message, allFields)
		service.logger.Info(formatted)
		return
	}
	zapFields := make([]zap.Field, 0, len(allFields))
	for _, field := range allFields {
		zapFields = append(zapFields, convertToZapField(field))
	}
	switch level {
	case zapcore.ErrorLevel:
		service.logger.Error(message, zapFields...)
	case zapcore.WarnLevel:
		service.logger.Warn(message, zapFields...)
	default:
		service.logger.Info(message, zapFields...)
	}
}

func convertToZapField(field Field) zap.Field {
	switch value := field.Value.(type) {
	case error:
		return zap.NamedError(field.Key, value)
	case []string:
		return zap.Strings(field.Key, value)
	case string:
		return zap.String(field.Key, value)
	case time.Duration:
		return zap.Duration(field.Key, value)
	case time.Time:
		return zap.Time(field.Key, value)
	case int:
		return zap.Int(field.Key, value)
	case bool:
		return zap.Bool(field.Key, value)
	default:
		return zap.Any(field.Key, value)
	}
}

func formatConsoleMessage(level zapcore.Level, message string, fields []Field) string {
	var builder strings.Builder
	if level >= zapcore.WarnLevel {
		builder.WriteString(strings.ToUpper(level.String()))
		builder.WriteString(": ")
	}
	builder.WriteString(message)
	for _, field := range fields {
		builder.WriteString(" ")
		builder.WriteString(field.Key)
		builder.WriteString("=")
		builder.WriteString(formatConsoleValue(field.Value))
	}
	return builder.String()
}

func formatConsoleValue(value any) string {
	switch typed := value.(type) {
	case string:
		return fmt.Sprintf("\"%s\"", typed)
	case []string:
		return fmt.Sprintf("[%s]", strings.Join(typed, ","))
	case error:
		return fmt.Sprintf("\"%s\"", typed.Error())
	case time.Time:
		return typed.Format(time.RFC3339)
	default:
		return fmt.Sprint(typed)
	}
}

func newZapLogger(loggingType string, output zapcore.WriteSyncer) (*zap.Logger, error) {
	switch loggingType {
	case TypeConsole:
		encoderConfig := zapcore.EncoderConfig{
			MessageKey: "msg",
			LineEnding: zapcore.DefaultLineEnding,
		}
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), output, zapcore.InfoLevel)
		return zap.New(core), nil
	case TypeJSON:
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), output, zapcore.InfoLevel)
		return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
	default:
		return nil, fmt.Errorf("unsupported logging type %s", loggingType)
	}
}
