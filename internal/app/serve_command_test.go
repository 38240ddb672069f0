package app

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestPrepareServeConfiguration(t *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		configPort    string
		expectedPort  string
		expectedError string
	}{
		{name: "configured port", configPort: "9000", expectedPort: "9000"},
		{name: "argument overrides configured port", arguments: []string{"9100"}, configPort: "9000", expectedPort: "9100"},
		{name: "non numeric port", arguments: []string{"http"}, expectedError: "invalid port"},
		{name: "port out of range", arguments: []string{"70000"}, expectedError: "invalid port"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resources := newTestResources(t)
			resources.configurationManager.Set(configKeyStoreBackend, storeBackendMemory)
			if testCase.configPort != "" {
				resources.configurationManager.Set(configKeyServePort, testCase.configPort)
			}
			command := &cobra.Command{}
			command.SetContext(context.WithValue(context.Background(), contextKeyApplicationResources, resources))

			serveConfiguration, err := prepareServeConfiguration(command, testCase.arguments)
			if testCase.expectedError != "" {
				if err == nil || !strings.Contains(err.Error(), testCase.expectedError) {
					t.Fatalf("expected error containing %q, got %v", testCase.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("prepare serve configuration: %v", err)
			}
			if serveConfiguration.Port != testCase.expectedPort {
				t.Fatalf("expected port %s, got %s", testCase.expectedPort, serveConfiguration.Port)
			}
			if serveConfiguration.BindAddress != "127.0.0.1" {
				t.Fatalf("expected default bind address, got %s", serveConfiguration.BindAddress)
			}
			if serveConfiguration.Store.Backend != storeBackendMemory {
				t.Fatalf("expected memory store, got %s", serveConfiguration.Store.Backend)
			}
		})
	}
}

func TestRunServeStopsWhenContextCancelled(t *testing.T) {
	resources := newTestResources(t)
	resources.configurationManager.Set(configKeyStoreBackend, storeBackendMemory)
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), contextKeyApplicationResources, resources))
	command := &cobra.Command{}
	command.SetContext(ctx)

	serveConfiguration, err := prepareServeConfiguration(command, []string{"0"})
	if err != nil {
		t.Fatalf("prepare serve configuration: %v", err)
	}
	cancel()
	if serveErr := runServe(command, serveConfiguration); serveErr != nil {
		t.Fatalf("expected clean shutdown, got %v", serveErr)
	}
}
