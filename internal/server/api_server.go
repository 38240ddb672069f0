package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tyemirov/certtrust/internal/certificates/trust"
	"github.com/tyemirov/certtrust/internal/serverdetails"
	"github.com/tyemirov/certtrust/pkg/logging"
)

const (
	serverHeaderName            = "Server"
	serverHeaderValue           = "certtrust"
	logFieldURL                 = "url"
	logFieldKeyStore            = "keystore"
	logMessageServingAPI        = "serving trust store api"
	logMessageShutdownInitiated = "shutdown initiated"
	logMessageShutdownCompleted = "shutdown completed"
	logMessageShutdownFailed    = "shutdown failed"
	logMessageServerError       = "server error"
	shutdownGracePeriod         = 3 * time.Second
	readHeaderTimeout           = 15 * time.Second
)

// APIConfiguration describes how the administration API listens.
type APIConfiguration struct {
	BindAddress      string
	Port             string
	KeyStorePassword string
	// KeyStoreDescription names the permanent store in startup logs.
	KeyStoreDescription string
}

// APIServer exposes a trust.Manager and the build error policies over HTTP.
type APIServer struct {
	loggingService          *logging.Service
	servingAddressFormatter serverdetails.ServingAddressFormatter
	manager                 trust.Manager
	metrics                 *Metrics
	gatherer                prometheus.Gatherer
}

// NewAPIServer constructs an APIServer. Metrics are registered with registry.
func NewAPIServer(loggingService *logging.Service, servingAddressFormatter serverdetails.ServingAddressFormatter, manager trust.Manager, registry *prometheus.Registry) APIServer {
	return APIServer{
		loggingService:          loggingService,
		servingAddressFormatter: servingAddressFormatter,
		manager:                 manager,
		metrics:                 NewMetrics(registry),
		gatherer:                registry,
	}
}

// Handler returns the routed API handler wrapped with request logging.
func (apiServer APIServer) Handler(configuration APIConfiguration) http.Handler {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			responseWriter.Header().Set(serverHeaderName, serverHeaderValue)
			next.ServeHTTP(responseWriter, request)
		})
	})

	certificateHandler := newCertificateHandler(apiServer.manager, apiServer.metrics, configuration.KeyStorePassword)
	certificateHandler.Register(router)
	newBuildPolicyHandler().Register(router)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(apiServer.gatherer, promhttp.HandlerOpts{}))

	return wrapWithLogging(apiServer.loggingService, router)
}

// Serve runs the API until the context is cancelled or an error occurs.
func (apiServer APIServer) Serve(ctx context.Context, configuration APIConfiguration) error {
	if apiServer.loggingService == nil {
		return errors.New("logging service not configured")
	}
	if apiServer.manager == nil {
		return errors.New("certificate manager not configured")
	}
	server := &http.Server{
		Addr:              net.JoinHostPort(configuration.BindAddress, configuration.Port),
		Handler:           apiServer.Handler(configuration),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	displayURL := apiServer.servingAddressFormatter.FormatURLForLogging("http", configuration.BindAddress, configuration.Port)
	if apiServer.loggingService.Type() == logging.TypeConsole {
		apiServer.loggingService.Info(fmt.Sprintf("Serving trust store API on %s (%s) ...", displayURL, configuration.KeyStoreDescription))
	} else {
		apiServer.loggingService.Info(logMessageServingAPI, logging.String(logFieldURL, displayURL), logging.String(logFieldKeyStore, configuration.KeyStoreDescription))
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		apiServer.loggingService.Info(logMessageShutdownInitiated)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			apiServer.loggingService.Error(logMessageShutdownFailed, shutdownErr)
			return fmt.Errorf("shutdown server: %w", shutdownErr)
		}
		apiServer.loggingService.Info(logMessageShutdownCompleted)
		return nil
	case serveErr := <-serverErrors:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			if isAddressInUse(serveErr) {
				friendlyMessage := formatAddressInUseMessage(configuration)
				apiServer.loggingService.Error(friendlyMessage, serveErr)
				return fmt.Errorf("address in use: %s", friendlyMessage)
			}
			apiServer.loggingService.Error(logMessageServerError, serveErr)
			return fmt.Errorf("serve http: %w", serveErr)
		}
		return nil
	}
}

func formatAddressInUseMessage(configuration APIConfiguration) string {
	bindAddress := configuration.BindAddress
	if strings.TrimSpace(bindAddress) == "" {
		bindAddress = "0.0.0.0"
	}
	return fmt.Sprintf("Address already in use: %s", net.JoinHostPort(bindAddress, configuration.Port))
}

func isAddressInUse(err error) bool {
	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		return errors.Is(syscallErr.Err, syscall.EADDRINUSE)
	}
	return errors.Is(err, syscall.EADDRINUSE)
}
