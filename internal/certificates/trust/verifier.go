package trust

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/tyemirov/certtrust/internal/certificates"
)

var errNoTrustedCertificates = errors.New("no extra certificates are trusted")

// VerifierConfiguration controls peer verification.
type VerifierConfiguration struct {
	// UseSystemRoots verifies against the operating system roots before consulting the manager.
	UseSystemRoots bool
	Clock          certificates.Clock
}

// Verifier accepts a peer chain when the system roots or the manager trust it.
// A leaf stored in the manager is accepted as is; otherwise the chain must
// verify against the manager's certificates for the requested server name.
type Verifier struct {
	manager     Manager
	systemRoots *x509.CertPool
	clock       certificates.Clock
}

// NewVerifier constructs a Verifier consulting manager.
func NewVerifier(manager Manager, configuration VerifierConfiguration) (*Verifier, error) {
	if manager == nil {
		return nil, errors.New("certificate manager is required")
	}
	clock := configuration.Clock
	if clock == nil {
		clock = certificates.NewSystemClock()
	}
	verifier := &Verifier{manager: manager, clock: clock}
	if configuration.UseSystemRoots {
		systemRoots, err := x509.SystemCertPool()
		if err != nil {
			return nil, securityError("load system roots", err)
		}
		verifier.systemRoots = systemRoots
	}
	return verifier, nil
}

// Verify checks the chain presented by serverName. The leaf comes first.
func (verifier *Verifier) Verify(ctx context.Context, chain []*x509.Certificate, serverName string) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: peer presented no certificates", ErrFormat)
	}
	leaf := chain[0]
	intermediates := x509.NewCertPool()
	for _, intermediate := range chain[1:] {
		intermediates.AddCert(intermediate)
	}
	verifyOptions := x509.VerifyOptions{
		DNSName:       serverName,
		Intermediates: intermediates,
		CurrentTime:   verifier.clock.Now(),
	}

	cause := errNoTrustedCertificates
	if verifier.systemRoots != nil {
		verifyOptions.Roots = verifier.systemRoots
		_, systemErr := leaf.Verify(verifyOptions)
		if systemErr == nil {
			return nil
		}
		cause = systemErr
	}

	keyStore, err := verifier.manager.AsKeyStore(ctx)
	if err != nil {
		return err
	}
	if keyStore.Contains(leaf) {
		return nil
	}
	if keyStore.Len() > 0 {
		verifyOptions.Roots = keyStore.CertPool()
		_, managerErr := leaf.Verify(verifyOptions)
		if managerErr == nil {
			return nil
		}
		cause = managerErr
	}
	return &UntrustedCertificateError{Certificate: leaf, ServerName: serverName, Cause: cause}
}

// TLSConfig returns a client configuration that verifies peers with Verify on every handshake.
func (verifier *Verifier) TLSConfig(serverName string) *tls.Config {
	return &tls.Config{
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
		// Verification is performed by VerifyConnection.
		InsecureSkipVerify: true,
		VerifyConnection: func(state tls.ConnectionState) error {
			return verifier.Verify(context.Background(), state.PeerCertificates, serverName)
		},
	}
}
