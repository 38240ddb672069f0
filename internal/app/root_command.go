package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newRootCommand(resources *applicationResources) *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           defaultApplicationName,
		Short:         "Manage extra trusted certificates and build error policies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigurationFile(cmd); err != nil {
				return err
			}
			return applyLoggingConfiguration(cmd)
		},
	}

	configurationManager := resources.configurationManager
	rootCommand.PersistentFlags().String(flagNameConfigFile, "", "Path to configuration file")
	rootCommand.PersistentFlags().String(flagNameLoggingType, configurationManager.GetString(configKeyLoggingType), "Logging type (CONSOLE or JSON)")
	_ = configurationManager.BindPFlag(configKeyLoggingType, rootCommand.PersistentFlags().Lookup(flagNameLoggingType))
	configureStoreFlags(rootCommand.PersistentFlags(), configurationManager)

	rootCommand.AddCommand(newCertificatesCommand(resources))
	rootCommand.AddCommand(newBuildCommand(resources))
	rootCommand.AddCommand(newServeCommand(resources))

	return rootCommand
}

func configureStoreFlags(flagSet *pflag.FlagSet, configurationManager *viper.Viper) {
	flagSet.String(flagNameStoreBackend, configurationManager.GetString(configKeyStoreBackend), fmt.Sprintf("Permanent store backend (%s, %s or %s)", storeBackendKeyStore, storeBackendLevelDB, storeBackendMemory))
	flagSet.String(flagNameStorePath, configurationManager.GetString(configKeyStorePath), "Location of the permanent store (defaults to the user config directory)")
	flagSet.String(flagNameStorePassword, configurationManager.GetString(configKeyStorePassword), "Password protecting the PKCS#12 keystore")
	flagSet.Duration(flagNameTemporaryLifetime, configurationManager.GetDuration(configKeyTemporaryLifetime), "Forget temporary certificates after this duration (0 keeps them until exit or purge)")

	_ = configurationManager.BindPFlag(configKeyStoreBackend, flagSet.Lookup(flagNameStoreBackend))
	_ = configurationManager.BindPFlag(configKeyStorePath, flagSet.Lookup(flagNameStorePath))
	_ = configurationManager.BindPFlag(configKeyStorePassword, flagSet.Lookup(flagNameStorePassword))
	_ = configurationManager.BindPFlag(configKeyTemporaryLifetime, flagSet.Lookup(flagNameTemporaryLifetime))
}
