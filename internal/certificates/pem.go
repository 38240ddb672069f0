package certificates

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
)

const (
	// CertificatePEMBlockType is the PEM block type of an X.509 certificate.
	CertificatePEMBlockType = "CERTIFICATE"
)

// ErrNoCertificates is returned when PEM input contains no certificate blocks.
var ErrNoCertificates = errors.New("no certificates found")

// ParseCertificatesFromPEM parses every CERTIFICATE block in the input, ignoring other block types.
func ParseCertificatesFromPEM(content []byte) ([]*x509.Certificate, error) {
	parsedCertificates := []*x509.Certificate{}
	remaining := content
	for {
		block, rest := pem.Decode(remaining)
		if block == nil {
			break
		}
		remaining = rest
		if block.Type != CertificatePEMBlockType {
			continue
		}
		certificate, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate %d: %w", len(parsedCertificates)+1, err)
		}
		parsedCertificates = append(parsedCertificates, certificate)
	}
	if len(parsedCertificates) == 0 {
		return nil, ErrNoCertificates
	}
	return parsedCertificates, nil
}

// EncodeCertificatesToPEM concatenates the certificates as PEM blocks.
func EncodeCertificatesToPEM(certificatesToEncode []*x509.Certificate) []byte {
	var buffer bytes.Buffer
	for _, certificate := range certificatesToEncode {
		_ = pem.Encode(&buffer, &pem.Block{Type: CertificatePEMBlockType, Bytes: certificate.Raw})
	}
	return buffer.Bytes()
}

// Fingerprint returns the lowercase hex SHA-256 digest of the DER encoding.
func Fingerprint(certificate *x509.Certificate) string {
	digest := sha256.Sum256(certificate.Raw)
	return hex.EncodeToString(digest[:])
}

// CloneCertificate returns an independent copy parsed from the raw DER bytes.
func CloneCertificate(certificate *x509.Certificate) (*x509.Certificate, error) {
	return x509.ParseCertificate(bytes.Clone(certificate.Raw))
}
