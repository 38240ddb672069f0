package app

import (
	"bytes"
	"context"
	"crypto/x509"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tyemirov/certtrust/internal/certificates"
	"github.com/tyemirov/certtrust/pkg/logging"
)

func newTestResources(t *testing.T) *applicationResources {
	t.Helper()
	configDirectory := t.TempDir()
	return &applicationResources{
		configurationManager: newConfigurationManager(configDirectory),
		loggingService:       logging.NewTestService(logging.TypeConsole),
		defaultConfigDirPath: configDirectory,
	}
}

func newLogCapturingResources(t *testing.T) (*applicationResources, *bytes.Buffer) {
	t.Helper()
	resources := newTestResources(t)
	logs := &bytes.Buffer{}
	loggingService, err := logging.NewWriterService(logging.TypeJSON, logs)
	if err != nil {
		t.Fatalf("create logging service: %v", err)
	}
	resources.configurationManager.Set(configKeyLoggingType, logging.TypeJSON)
	resources.loggingService = loggingService
	return resources, logs
}

func executeRootCommand(t *testing.T, resources *applicationResources, input io.Reader, arguments ...string) (string, error) {
	t.Helper()
	rootCommand := newRootCommand(resources)
	var output bytes.Buffer
	rootCommand.SetOut(&output)
	rootCommand.SetErr(&output)
	if input != nil {
		rootCommand.SetIn(input)
	}
	rootCommand.SetArgs(arguments)
	executionErr := rootCommand.ExecuteContext(context.WithValue(context.Background(), contextKeyApplicationResources, resources))
	return output.String(), executionErr
}

func writePEMFile(t *testing.T, certificatesToWrite ...*x509.Certificate) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certificates.pem")
	if err := os.WriteFile(path, certificates.EncodeCertificatesToPEM(certificatesToWrite), 0o600); err != nil {
		t.Fatalf("write pem file: %v", err)
	}
	return path
}
