// Package certificatestest generates throwaway certificate chains for tests.
package certificatestest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"
)

const serialNumberBitLength = 128

// Authority is a self-signed certificate authority able to issue leaf certificates.
type Authority struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// NewAuthority creates a self-signed certificate authority with the given common name.
func NewAuthority(testingT testing.TB, commonName string) Authority {
	testingT.Helper()
	privateKey := generateKey(testingT)
	now := time.Now()
	template := x509.Certificate{
		SerialNumber: generateSerialNumber(testingT),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"certtrust tests"},
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}
	certificateDer, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		testingT.Fatalf("create authority certificate: %v", err)
	}
	return Authority{Certificate: parse(testingT, certificateDer), PrivateKey: privateKey}
}

// NewSelfSigned returns a standalone self-signed certificate.
func NewSelfSigned(testingT testing.TB, commonName string) *x509.Certificate {
	testingT.Helper()
	return NewAuthority(testingT, commonName).Certificate
}

// IssueServerCertificate signs a leaf certificate for the hosts and returns it with a TLS key pair.
func (authority Authority) IssueServerCertificate(testingT testing.TB, hosts ...string) (*x509.Certificate, tls.Certificate) {
	testingT.Helper()
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}
	privateKey := generateKey(testingT)
	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          generateSerialNumber(testingT),
		Subject:               pkix.Name{CommonName: hosts[0]},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(12 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}
	certificateDer, err := x509.CreateCertificate(rand.Reader, &template, authority.Certificate, &privateKey.PublicKey, authority.PrivateKey)
	if err != nil {
		testingT.Fatalf("create server certificate: %v", err)
	}
	leaf := parse(testingT, certificateDer)
	keyPair := tls.Certificate{
		Certificate: [][]byte{certificateDer, authority.Certificate.Raw},
		PrivateKey:  privateKey,
		Leaf:        leaf,
	}
	return leaf, keyPair
}

func generateKey(testingT testing.TB) *ecdsa.PrivateKey {
	testingT.Helper()
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		testingT.Fatalf("generate private key: %v", err)
	}
	return privateKey
}

func generateSerialNumber(testingT testing.TB) *big.Int {
	testingT.Helper()
	upperBound := new(big.Int).Lsh(big.NewInt(1), serialNumberBitLength)
	serialNumber, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		testingT.Fatalf("generate serial number: %v", err)
	}
	return serialNumber
}

func parse(testingT testing.TB, certificateDer []byte) *x509.Certificate {
	testingT.Helper()
	certificate, err := x509.ParseCertificate(certificateDer)
	if err != nil {
		testingT.Fatalf("parse certificate: %v", err)
	}
	return certificate
}
