package app

import "testing"

func TestNewRootCommandRegistersCommands(t *testing.T) {
	resources := newTestResources(t)

	defer func() {
		if recovered := recover(); recovered != nil {
			t.Fatalf("newRootCommand panicked: %v", recovered)
		}
	}()

	rootCommand := newRootCommand(resources)
	for _, flagName := range []string{flagNameConfigFile, flagNameLoggingType, flagNameStoreBackend, flagNameStorePath, flagNameStorePassword, flagNameTemporaryLifetime} {
		if rootCommand.PersistentFlags().Lookup(flagName) == nil {
			t.Fatalf("expected persistent flag %s", flagName)
		}
	}
	for _, path := range [][]string{
		{"certificates", "add"},
		{"certificates", "list"},
		{"certificates", "purge"},
		{"certificates", "export"},
		{"certificates", "check"},
		{"build", "outcome"},
		{"build", "behaviors"},
		{"serve"},
	} {
		command, _, err := rootCommand.Find(path)
		if err != nil || command.Name() != path[len(path)-1] {
			t.Fatalf("expected command %v to be registered", path)
		}
	}
}

func TestUpdateLoggerRejectsUnknownType(t *testing.T) {
	resources := newTestResources(t)
	if err := resources.updateLogger("xml"); err == nil {
		t.Fatalf("expected error for unknown logging type")
	}
	if resources.loggingService.Type() != "CONSOLE" {
		t.Fatalf("logger must remain unchanged, got %s", resources.loggingService.Type())
	}
}
