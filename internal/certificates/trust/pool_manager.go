package trust

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tyemirov/certtrust/internal/certificates"
)

// PoolManagerConfiguration controls how long temporary certificates are remembered.
type PoolManagerConfiguration struct {
	// TemporaryLifetime expires temporary certificates after the duration. Zero keeps them until purged or process exit.
	TemporaryLifetime time.Duration
}

// PoolManager implements Manager over an in-memory temporary pool and a PermanentStore.
// It is safe for concurrent use. The permanent store is read on every snapshot,
// so changes made by another process sharing the store are visible.
type PoolManager struct {
	mutex          sync.RWMutex
	temporary      *temporaryPool
	permanentStore PermanentStore
}

var _ Manager = (*PoolManager)(nil)

// NewPoolManager constructs a PoolManager backed by permanentStore.
func NewPoolManager(permanentStore PermanentStore, configuration PoolManagerConfiguration) (*PoolManager, error) {
	if permanentStore == nil {
		return nil, errors.New("permanent store is required")
	}
	return &PoolManager{
		temporary:      newTemporaryPool(configuration.TemporaryLifetime),
		permanentStore: permanentStore,
	}, nil
}

func (manager *PoolManager) AddTemporaryCertificate(ctx context.Context, certificate *x509.Certificate) error {
	if err := validateCertificate(certificate); err != nil {
		return err
	}
	clone, err := certificates.CloneCertificate(certificate)
	if err != nil {
		return formatError("parse temporary certificate", err)
	}
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	manager.temporary.add(clone)
	return nil
}

func (manager *PoolManager) AddPermanentCertificate(ctx context.Context, certificate *x509.Certificate) error {
	if err := validateCertificate(certificate); err != nil {
		return err
	}
	clone, err := certificates.CloneCertificate(certificate)
	if err != nil {
		return formatError("parse permanent certificate", err)
	}
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if err := manager.permanentStore.Add(ctx, clone); err != nil {
		return fmt.Errorf("add permanent certificate: %w", err)
	}
	return nil
}

func (manager *PoolManager) PurgeTemporaryCertificates(ctx context.Context) error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	manager.temporary.purge()
	return nil
}

func (manager *PoolManager) PurgePermanentCertificates(ctx context.Context) error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return manager.purgePermanentLocked(ctx)
}

func (manager *PoolManager) PurgeAllCertificates(ctx context.Context) error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if err := manager.purgePermanentLocked(ctx); err != nil {
		return err
	}
	manager.temporary.purge()
	return nil
}

// AsKeyStore wraps failures in ErrSecurity; the cause is preserved for errors.Is.
// Both pools are read under the same lock, so a concurrent purge is observed
// entirely or not at all.
func (manager *PoolManager) AsKeyStore(ctx context.Context) (KeyStore, error) {
	manager.mutex.RLock()
	permanentCertificates, err := manager.permanentStore.Certificates(ctx)
	temporaryCertificates := manager.temporary.certificates()
	manager.mutex.RUnlock()
	if err != nil {
		return KeyStore{}, securityError("load permanent certificates", err)
	}
	return newKeyStore(temporaryCertificates, permanentCertificates)
}

// Close releases the permanent store.
func (manager *PoolManager) Close() error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return manager.permanentStore.Close()
}

func (manager *PoolManager) purgePermanentLocked(ctx context.Context) error {
	if err := manager.permanentStore.Clear(ctx); err != nil {
		return fmt.Errorf("purge permanent certificates: %w", err)
	}
	return nil
}
