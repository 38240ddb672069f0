package trust

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/tyemirov/certtrust/internal/certificates"
)

var (
	// ErrFormat reports an I/O or format problem with keystore data, or a missing or incorrect password.
	ErrFormat = errors.New("keystore format error")
	// ErrSecurity reports a failure reading or writing data within the keystore.
	ErrSecurity = errors.New("keystore security error")
)

// UntrustedCertificateError reports a peer certificate accepted by neither the system roots nor the manager.
type UntrustedCertificateError struct {
	Certificate *x509.Certificate
	ServerName  string
	Cause       error
}

func (untrustedErr *UntrustedCertificateError) Error() string {
	subject := untrustedErr.Certificate.Subject.String()
	if subject == "" {
		subject = "<empty subject>"
	}
	return fmt.Sprintf("certificate %s (sha256 %s) presented by %s is not trusted: %v",
		subject, certificates.Fingerprint(untrustedErr.Certificate), untrustedErr.ServerName, untrustedErr.Cause)
}

func (untrustedErr *UntrustedCertificateError) Unwrap() error {
	return untrustedErr.Cause
}

func formatError(action string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrFormat, action, cause)
}

func securityError(action string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrSecurity, action, cause)
}

func validateCertificate(certificate *x509.Certificate) error {
	if certificate == nil {
		return fmt.Errorf("%w: certificate is nil", ErrFormat)
	}
	if len(certificate.Raw) == 0 {
		return fmt.Errorf("%w: certificate has no DER encoding", ErrFormat)
	}
	return nil
}
