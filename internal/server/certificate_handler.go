package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tyemirov/certtrust/internal/certificates"
	"github.com/tyemirov/certtrust/internal/certificates/trust"
)

const (
	maximumCertificateUploadBytes = 1 << 20
	queryParameterLifetime        = "lifetime"
	queryParameterScope           = "scope"
	queryParameterFormat          = "format"
	scopeTemporary                = "temporary"
	scopePermanent                = "permanent"
	scopeAll                      = "all"
	formatPKCS12                  = "pkcs12"
	formatPEM                     = "pem"
	contentTypePKCS12             = "application/x-pkcs12"
	contentTypePEM                = "application/x-pem-file"
	headerContentDisposition      = "Content-Disposition"
	keyStoreDownloadBaseName      = "extra-certificates"
)

type certificateResponse struct {
	Alias     string    `json:"alias"`
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	Origin    string    `json:"origin"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

type certificateListResponse struct {
	Certificates []certificateResponse `json:"certificates"`
}

type certificateAddResponse struct {
	Lifetime string   `json:"lifetime"`
	Added    []string `json:"added"`
}

type certificateHandler struct {
	manager          trust.Manager
	metrics          *Metrics
	keyStorePassword string
}

func newCertificateHandler(manager trust.Manager, metrics *Metrics, keyStorePassword string) certificateHandler {
	return certificateHandler{manager: manager, metrics: metrics, keyStorePassword: keyStorePassword}
}

func (handler certificateHandler) Register(router chi.Router) {
	router.Get("/certificates", handler.list)
	router.Post("/certificates", handler.add)
	router.Delete("/certificates", handler.purge)
	router.Get("/keystore", handler.export)
}

func (handler certificateHandler) list(responseWriter http.ResponseWriter, request *http.Request) {
	keyStore, err := handler.manager.AsKeyStore(request.Context())
	if err != nil {
		writeManagerError(responseWriter, err)
		return
	}
	handler.metrics.observeSnapshot(keyStore)
	response := certificateListResponse{Certificates: []certificateResponse{}}
	for _, entry := range keyStore.Entries() {
		response.Certificates = append(response.Certificates, certificateResponse{
			Alias:     entry.Alias,
			Subject:   entry.Certificate.Subject.String(),
			Issuer:    entry.Certificate.Issuer.String(),
			Origin:    string(entry.Origin),
			NotBefore: entry.Certificate.NotBefore.UTC(),
			NotAfter:  entry.Certificate.NotAfter.UTC(),
		})
	}
	writeJSON(responseWriter, http.StatusOK, response)
}

func (handler certificateHandler) add(responseWriter http.ResponseWriter, request *http.Request) {
	lifetime := strings.ToLower(strings.TrimSpace(request.URL.Query().Get(queryParameterLifetime)))
	if lifetime == "" {
		lifetime = scopeTemporary
	}
	if lifetime != scopeTemporary && lifetime != scopePermanent {
		writeRequestError(responseWriter, fmt.Errorf("unsupported lifetime %q", lifetime))
		return
	}
	content, readErr := io.ReadAll(io.LimitReader(request.Body, maximumCertificateUploadBytes+1))
	if readErr != nil {
		writeRequestError(responseWriter, fmt.Errorf("read request body: %w", readErr))
		return
	}
	if len(content) > maximumCertificateUploadBytes {
		writeRequestError(responseWriter, errors.New("certificate upload exceeds 1 MiB"))
		return
	}
	parsedCertificates, parseErr := certificates.ParseCertificatesFromPEM(content)
	if parseErr != nil {
		writeRequestError(responseWriter, fmt.Errorf("parse certificates: %w", parseErr))
		return
	}

	response := certificateAddResponse{Lifetime: lifetime, Added: []string{}}
	for _, certificate := range parsedCertificates {
		var addErr error
		if lifetime == scopePermanent {
			addErr = handler.manager.AddPermanentCertificate(request.Context(), certificate)
		} else {
			addErr = handler.manager.AddTemporaryCertificate(request.Context(), certificate)
		}
		if addErr != nil {
			writeJSON(responseWriter, http.StatusInternalServerError, errorResponse{
				Error:    addErr.Error(),
				Category: managerErrorCategory(addErr),
				Added:    response.Added,
			})
			return
		}
		handler.metrics.CertificatesAdded.WithLabelValues(lifetime).Inc()
		response.Added = append(response.Added, certificates.Fingerprint(certificate))
	}
	writeJSON(responseWriter, http.StatusCreated, response)
}

func (handler certificateHandler) purge(responseWriter http.ResponseWriter, request *http.Request) {
	scope := strings.ToLower(strings.TrimSpace(request.URL.Query().Get(queryParameterScope)))
	var purgeErr error
	switch scope {
	case scopeTemporary:
		purgeErr = handler.manager.PurgeTemporaryCertificates(request.Context())
	case scopePermanent:
		purgeErr = handler.manager.PurgePermanentCertificates(request.Context())
	case scopeAll:
		purgeErr = handler.manager.PurgeAllCertificates(request.Context())
	default:
		writeRequestError(responseWriter, fmt.Errorf("scope must be one of %s, %s or %s", scopeTemporary, scopePermanent, scopeAll))
		return
	}
	if purgeErr != nil {
		writeManagerError(responseWriter, purgeErr)
		return
	}
	handler.metrics.CertificatesPurged.WithLabelValues(scope).Inc()
	responseWriter.WriteHeader(http.StatusNoContent)
}

func (handler certificateHandler) export(responseWriter http.ResponseWriter, request *http.Request) {
	format := strings.ToLower(strings.TrimSpace(request.URL.Query().Get(queryParameterFormat)))
	if format == "" {
		format = formatPKCS12
	}
	if format != formatPKCS12 && format != formatPEM {
		writeRequestError(responseWriter, fmt.Errorf("unsupported keystore format %q", format))
		return
	}
	keyStore, err := handler.manager.AsKeyStore(request.Context())
	if err != nil {
		writeManagerError(responseWriter, err)
		return
	}

	content := keyStore.EncodePEM()
	contentType := contentTypePEM
	fileExtension := "pem"
	if format == formatPKCS12 {
		encoded, encodeErr := keyStore.EncodePKCS12(handler.keyStorePassword)
		if encodeErr != nil {
			writeManagerError(responseWriter, encodeErr)
			return
		}
		content = encoded
		contentType = contentTypePKCS12
		fileExtension = "p12"
	}
	handler.metrics.KeyStoreExports.WithLabelValues(format).Inc()
	responseWriter.Header().Set(headerContentType, contentType)
	responseWriter.Header().Set(headerContentDisposition, fmt.Sprintf("attachment; filename=%q", keyStoreDownloadBaseName+"."+fileExtension))
	responseWriter.WriteHeader(http.StatusOK)
	_, _ = responseWriter.Write(content)
}
