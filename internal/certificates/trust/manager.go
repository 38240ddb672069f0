// Package trust manages certificates that are accepted in addition to the
// system roots. Certificates live in one of two pools: a temporary pool held
// in process memory and a permanent pool persisted by a PermanentStore.
package trust

import (
	"context"
	"crypto/x509"
)

// Origin identifies the pool an entry was added to.
type Origin string

const (
	OriginTemporary Origin = "temporary"
	OriginPermanent Origin = "permanent"
)

// Manager is the capability surface of a dynamic certificate trust store.
//
// Every method except AsKeyStore mutates the store. Errors wrap ErrFormat when
// the underlying data cannot be read, parsed or written (including a missing or
// incorrect password) and ErrSecurity when a cryptographic or keystore-internal
// operation fails.
type Manager interface {
	// AddTemporaryCertificate trusts the certificate until the temporary pool is forgotten.
	AddTemporaryCertificate(ctx context.Context, certificate *x509.Certificate) error
	// AddPermanentCertificate trusts the certificate and persists it until purged.
	AddPermanentCertificate(ctx context.Context, certificate *x509.Certificate) error
	// PurgeTemporaryCertificates removes every temporary entry. Permanent entries are kept.
	PurgeTemporaryCertificates(ctx context.Context) error
	// PurgePermanentCertificates removes every permanent entry. Temporary entries are kept.
	PurgePermanentCertificates(ctx context.Context) error
	// PurgeAllCertificates removes every entry from both pools.
	PurgeAllCertificates(ctx context.Context) error
	// AsKeyStore returns an independent snapshot of all trusted certificates.
	AsKeyStore(ctx context.Context) (KeyStore, error)
}
