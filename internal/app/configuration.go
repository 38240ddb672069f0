package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tyemirov/certtrust/internal/certificates"
	"github.com/tyemirov/certtrust/internal/certificates/trust"
	"github.com/tyemirov/certtrust/pkg/logging"
)

const (
	storeBackendKeyStore = "keystore"
	storeBackendLevelDB  = "leveldb"
	storeBackendMemory   = "memory"

	defaultLevelDBDirectoryName = "certificates.db"
	storeDirectoryPermissions   = 0o700
	storeFilePermissions        = 0o600

	logFieldSignal           = "signal"
	logFieldStore            = "store"
	logMessageReceivedSignal = "received signal"
	logMessageCloseStore     = "close certificate store"
)

// StoreConfiguration selects and locates the permanent certificate store.
type StoreConfiguration struct {
	Backend           string
	Path              string
	Password          string
	TemporaryLifetime time.Duration
}

// Description names the store for log output.
func (configuration StoreConfiguration) Description() string {
	if configuration.Backend == storeBackendMemory {
		return storeBackendMemory
	}
	return fmt.Sprintf("%s %s", configuration.Backend, configuration.Path)
}

func resolveStoreConfiguration(resources *applicationResources) (StoreConfiguration, error) {
	configurationManager := resources.configurationManager
	backend := strings.ToLower(strings.TrimSpace(configurationManager.GetString(configKeyStoreBackend)))
	if backend == "" {
		backend = storeBackendKeyStore
	}
	storePath := strings.TrimSpace(configurationManager.GetString(configKeyStorePath))
	switch backend {
	case storeBackendKeyStore:
		if storePath == "" {
			storePath = filepath.Join(resources.defaultConfigDirPath, trust.DefaultKeyStoreFileName)
		}
	case storeBackendLevelDB:
		if storePath == "" {
			storePath = filepath.Join(resources.defaultConfigDirPath, defaultLevelDBDirectoryName)
		}
	case storeBackendMemory:
		storePath = ""
	default:
		return StoreConfiguration{}, fmt.Errorf("unsupported store backend %q", backend)
	}

	temporaryLifetime := configurationManager.GetDuration(configKeyTemporaryLifetime)
	if temporaryLifetime < 0 {
		return StoreConfiguration{}, fmt.Errorf("temporary lifetime must not be negative: %s", temporaryLifetime)
	}

	return StoreConfiguration{
		Backend:           backend,
		Path:              storePath,
		Password:          configurationManager.GetString(configKeyStorePassword),
		TemporaryLifetime: temporaryLifetime,
	}, nil
}

func openPermanentStore(configuration StoreConfiguration) (trust.PermanentStore, error) {
	switch configuration.Backend {
	case storeBackendKeyStore:
		keyStoreFileStore, err := trust.NewKeyStoreFileStore(certificates.NewOperatingSystemFileSystem(), trust.KeyStoreFileConfiguration{
			Path:                 configuration.Path,
			Password:             configuration.Password,
			DirectoryPermissions: storeDirectoryPermissions,
			FilePermissions:      storeFilePermissions,
		})
		if err != nil {
			return nil, err
		}
		return keyStoreFileStore, nil
	case storeBackendLevelDB:
		if err := os.MkdirAll(filepath.Dir(configuration.Path), storeDirectoryPermissions); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		levelDBStore, err := trust.OpenLevelDBStore(configuration.Path)
		if err != nil {
			return nil, err
		}
		return levelDBStore, nil
	case storeBackendMemory:
		return trust.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", configuration.Backend)
	}
}

func openCertificateManager(configuration StoreConfiguration) (*trust.PoolManager, error) {
	permanentStore, err := openPermanentStore(configuration)
	if err != nil {
		return nil, fmt.Errorf("open certificate store: %w", err)
	}
	manager, err := trust.NewPoolManager(permanentStore, trust.PoolManagerConfiguration{TemporaryLifetime: configuration.TemporaryLifetime})
	if err != nil {
		_ = permanentStore.Close()
		return nil, err
	}
	return manager, nil
}

func closeCertificateManager(resources *applicationResources, manager *trust.PoolManager, configuration StoreConfiguration) {
	if closeErr := manager.Close(); closeErr != nil {
		resources.loggingService.Warn(logMessageCloseStore, logging.String(logFieldStore, configuration.Description()), logging.ErrorField(closeErr))
	}
}

func loadConfigurationFile(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	configurationManager := resources.configurationManager
	configFilePath, flagErr := cmd.Flags().GetString(flagNameConfigFile)
	if flagErr != nil {
		return fmt.Errorf("read config flag: %w", flagErr)
	}
	if configFilePath != "" {
		configurationManager.SetConfigFile(configFilePath)
	} else {
		configurationManager.AddConfigPath(resources.defaultConfigDirPath)
		configurationManager.SetConfigName(defaultConfigFileName)
		configurationManager.SetConfigType(defaultConfigFileType)
	}
	if readErr := configurationManager.ReadInConfig(); readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return fmt.Errorf("read configuration: %w", readErr)
		}
	}
	return nil
}

func applyLoggingConfiguration(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	return resources.updateLogger(resources.configurationManager.GetString(configKeyLoggingType))
}

func getApplicationResources(cmd *cobra.Command) (*applicationResources, error) {
	resourceValue := cmd.Context().Value(contextKeyApplicationResources)
	if resourceValue == nil {
		return nil, errors.New("application resources not configured")
	}
	resources, ok := resourceValue.(*applicationResources)
	if !ok {
		return nil, errors.New("invalid application resources type")
	}
	return resources, nil
}

func createSignalContext(parent context.Context, loggingService *logging.Service) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			return
		case receivedSignal := <-signalChannel:
			if loggingService != nil {
				loggingService.Info(logMessageReceivedSignal, logging.String(logFieldSignal, receivedSignal.String()))
			}
			cancel()
		}
	}()

	return ctx, func() {
		signal.Stop(signalChannel)
		cancel()
	}
}
