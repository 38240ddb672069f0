package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tyemirov/certtrust/internal/server"
	"github.com/tyemirov/certtrust/internal/serverdetails"
)

// ServeConfiguration captures the runtime settings for the administration API.
type ServeConfiguration struct {
	BindAddress string
	Port        string
	Store       StoreConfiguration
}

func newServeCommand(resources *applicationResources) *cobra.Command {
	serveCommand := &cobra.Command{
		Use:   "serve [port]",
		Short: "Serve the trust store administration API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serveConfiguration, err := prepareServeConfiguration(cmd, args)
			if err != nil {
				return err
			}
			return runServe(cmd, serveConfiguration)
		},
	}
	configurationManager := resources.configurationManager
	serveCommand.Flags().String(flagNameBindAddress, configurationManager.GetString(configKeyServeBindAddress), "Address to bind the API to")
	_ = configurationManager.BindPFlag(configKeyServeBindAddress, serveCommand.Flags().Lookup(flagNameBindAddress))
	return serveCommand
}

func prepareServeConfiguration(cmd *cobra.Command, args []string) (ServeConfiguration, error) {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return ServeConfiguration{}, err
	}
	configurationManager := resources.configurationManager
	port := configurationManager.GetString(configKeyServePort)
	if len(args) > 0 {
		port = args[0]
	}
	port = strings.TrimSpace(port)
	portNumber, convertErr := strconv.Atoi(port)
	if convertErr != nil || portNumber < 0 || portNumber > 65535 {
		return ServeConfiguration{}, fmt.Errorf("invalid port %q", port)
	}
	storeConfiguration, err := resolveStoreConfiguration(resources)
	if err != nil {
		return ServeConfiguration{}, err
	}
	return ServeConfiguration{
		BindAddress: strings.TrimSpace(configurationManager.GetString(configKeyServeBindAddress)),
		Port:        port,
		Store:       storeConfiguration,
	}, nil
}

func runServe(cmd *cobra.Command, serveConfiguration ServeConfiguration) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	manager, err := openCertificateManager(serveConfiguration.Store)
	if err != nil {
		return err
	}
	defer closeCertificateManager(resources, manager, serveConfiguration.Store)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	apiServer := server.NewAPIServer(resources.loggingService, serverdetails.NewServingAddressFormatter(), manager, registry)
	serveContext, cancel := createSignalContext(cmd.Context(), resources.loggingService)
	defer cancel()

	return apiServer.Serve(serveContext, server.APIConfiguration{
		BindAddress:         serveConfiguration.BindAddress,
		Port:                serveConfiguration.Port,
		KeyStorePassword:    serveConfiguration.Store.Password,
		KeyStoreDescription: serveConfiguration.Store.Description(),
	})
}
