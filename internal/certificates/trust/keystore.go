package trust

import (
	"crypto/x509"
	"slices"
	"strings"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/tyemirov/certtrust/internal/certificates"
)

// Entry is a trusted certificate in a KeyStore snapshot.
type Entry struct {
	Alias       string
	Certificate *x509.Certificate
	Origin      Origin
}

// KeyStore is an immutable snapshot of trusted certificates ordered by alias.
type KeyStore struct {
	entries []Entry
}

// newKeyStore merges the pools into a snapshot. A certificate present in both
// pools is reported once with the permanent origin.
func newKeyStore(temporaryCertificates []*x509.Certificate, permanentCertificates []*x509.Certificate) (KeyStore, error) {
	entriesByAlias := map[string]Entry{}
	addEntries := func(source []*x509.Certificate, origin Origin) error {
		for _, certificate := range source {
			clone, err := certificates.CloneCertificate(certificate)
			if err != nil {
				return securityError("copy certificate", err)
			}
			alias := certificates.Fingerprint(clone)
			entriesByAlias[alias] = Entry{Alias: alias, Certificate: clone, Origin: origin}
		}
		return nil
	}
	if err := addEntries(temporaryCertificates, OriginTemporary); err != nil {
		return KeyStore{}, err
	}
	if err := addEntries(permanentCertificates, OriginPermanent); err != nil {
		return KeyStore{}, err
	}
	entries := make([]Entry, 0, len(entriesByAlias))
	for _, entry := range entriesByAlias {
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(left Entry, right Entry) int {
		return strings.Compare(left.Alias, right.Alias)
	})
	return KeyStore{entries: entries}, nil
}

// Len returns the number of entries.
func (keyStore KeyStore) Len() int {
	return len(keyStore.entries)
}

// Entries returns a copy of the entries.
func (keyStore KeyStore) Entries() []Entry {
	return slices.Clone(keyStore.entries)
}

// Certificates returns the certificates in alias order.
func (keyStore KeyStore) Certificates() []*x509.Certificate {
	result := make([]*x509.Certificate, 0, len(keyStore.entries))
	for _, entry := range keyStore.entries {
		result = append(result, entry.Certificate)
	}
	return result
}

// Lookup finds an entry by alias.
func (keyStore KeyStore) Lookup(alias string) (Entry, bool) {
	normalizedAlias := strings.ToLower(strings.TrimSpace(alias))
	index, found := slices.BinarySearchFunc(keyStore.entries, normalizedAlias, func(entry Entry, target string) int {
		return strings.Compare(entry.Alias, target)
	})
	if !found {
		return Entry{}, false
	}
	return keyStore.entries[index], true
}

// Contains reports whether the exact certificate is trusted.
func (keyStore KeyStore) Contains(certificate *x509.Certificate) bool {
	if certificate == nil {
		return false
	}
	_, found := keyStore.Lookup(certificates.Fingerprint(certificate))
	return found
}

// CertPool returns a pool holding every trusted certificate.
func (keyStore KeyStore) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	for _, entry := range keyStore.entries {
		pool.AddCert(entry.Certificate)
	}
	return pool
}

// EncodePEM returns the certificates as a PEM bundle.
func (keyStore KeyStore) EncodePEM() []byte {
	return certificates.EncodeCertificatesToPEM(keyStore.Certificates())
}

// EncodePKCS12 returns a password-protected PKCS#12 trust store readable by Java's KeyStore.
func (keyStore KeyStore) EncodePKCS12(password string) ([]byte, error) {
	return encodeTrustStore(keyStore.Certificates(), password)
}

func encodeTrustStore(certificatesToEncode []*x509.Certificate, password string) ([]byte, error) {
	trustStoreEntries := make([]pkcs12.TrustStoreEntry, 0, len(certificatesToEncode))
	for _, certificate := range certificatesToEncode {
		trustStoreEntries = append(trustStoreEntries, pkcs12.TrustStoreEntry{
			Cert:         certificate,
			FriendlyName: certificates.Fingerprint(certificate),
		})
	}
	encoded, err := pkcs12.Modern.EncodeTrustStoreEntries(trustStoreEntries, password)
	if err != nil {
		return nil, securityError("encode pkcs12 trust store", err)
	}
	return encoded, nil
}
