package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tyemirov/certtrust/internal/buildpolicy"
	"github.com/tyemirov/certtrust/internal/certificates/trust"
	"github.com/tyemirov/certtrust/pkg/logging"
)

type contextKey string

const (
	contextKeyApplicationResources contextKey = "application-resources"

	defaultApplicationName = "certtrust"
	defaultConfigFileName  = "config"
	defaultConfigFileType  = "yaml"
	defaultServePort       = "8877"

	flagNameConfigFile        = "config"
	flagNameLoggingType       = "logging-type"
	flagNameStoreBackend      = "store-backend"
	flagNameStorePath         = "store-path"
	flagNameStorePassword     = "store-password"
	flagNameTemporaryLifetime = "temporary-lifetime"
	flagNameSystemRoots       = "system-roots"
	flagNameBindAddress       = "bind"
	flagNameBehavior          = "behavior"

	configKeyLoggingType       = "logging.type"
	configKeyStoreBackend      = "store.backend"
	configKeyStorePath         = "store.path"
	configKeyStorePassword     = "store.password"
	configKeyTemporaryLifetime = "store.temporary_lifetime"
	configKeySystemRoots       = "verify.system_roots"
	configKeyBuildBehavior     = "build.error_behavior"
	configKeyServeBindAddress  = "serve.bind_address"
	configKeyServePort         = "serve.port"

	logMessageFailedInitializeLogger = "failed to initialize logger"
	logMessageResolveUserConfigDir   = "resolve user config directory"
	logMessageCommandExecutionFailed = "command execution failed"
)

type applicationResources struct {
	configurationManager *viper.Viper
	loggingService       *logging.Service
	defaultConfigDirPath string
}

func (resources *applicationResources) updateLogger(loggingType string) error {
	normalizedType, err := logging.NormalizeType(loggingType)
	if err != nil {
		return err
	}
	if resources.loggingService != nil && resources.loggingService.Type() == normalizedType {
		return nil
	}
	service, err := logging.NewService(normalizedType)
	if err != nil {
		return err
	}
	if resources.loggingService != nil {
		_ = resources.loggingService.Sync()
	}
	resources.loggingService = service
	return nil
}

func newConfigurationManager(applicationConfigDir string) *viper.Viper {
	configurationManager := viper.New()
	configurationManager.SetEnvPrefix(strings.ToUpper(defaultApplicationName))
	configurationManager.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configurationManager.AutomaticEnv()

	configurationManager.SetDefault(configKeyLoggingType, logging.TypeConsole)
	configurationManager.SetDefault(configKeyStoreBackend, storeBackendKeyStore)
	configurationManager.SetDefault(configKeyStorePath, "")
	configurationManager.SetDefault(configKeyStorePassword, trust.DefaultKeyStorePassword)
	configurationManager.SetDefault(configKeyTemporaryLifetime, "0s")
	configurationManager.SetDefault(configKeySystemRoots, true)
	configurationManager.SetDefault(configKeyBuildBehavior, buildpolicy.DefaultErrorBehavior.String())
	configurationManager.SetDefault(configKeyServeBindAddress, "127.0.0.1")
	configurationManager.SetDefault(configKeyServePort, defaultServePort)
	return configurationManager
}

// Execute runs the CLI using the provided context and arguments, returning an exit code.
func Execute(ctx context.Context, arguments []string) int {
	initialService, err := logging.NewService(logging.TypeConsole)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", logMessageFailedInitializeLogger, err)
		return 1
	}
	userConfigDir, userConfigErr := os.UserConfigDir()
	if userConfigErr != nil {
		initialService.Error(logMessageResolveUserConfigDir, userConfigErr)
		return 1
	}
	applicationConfigDir := filepath.Join(userConfigDir, defaultApplicationName)

	resources := &applicationResources{
		configurationManager: newConfigurationManager(applicationConfigDir),
		loggingService:       initialService,
		defaultConfigDirPath: applicationConfigDir,
	}
	if err := resources.updateLogger(resources.configurationManager.GetString(configKeyLoggingType)); err != nil {
		resources.loggingService = initialService
		resources.loggingService.Error(logMessageFailedInitializeLogger, err)
		return 1
	}
	defer func() {
		if resources.loggingService != nil {
			_ = resources.loggingService.Sync()
		}
	}()

	rootCommand := newRootCommand(resources)
	rootCommand.SetContext(context.WithValue(ctx, contextKeyApplicationResources, resources))
	rootCommand.SetArgs(arguments)

	if executionErr := rootCommand.Execute(); executionErr != nil {
		resources.loggingService.Error(logMessageCommandExecutionFailed, executionErr)
		return 1
	}
	return 0
}
