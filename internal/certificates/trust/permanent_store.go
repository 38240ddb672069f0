package trust

import (
	"context"
	"crypto/x509"
	"sync"

	"github.com/tyemirov/certtrust/internal/certificates"
)

// PermanentStore persists permanent certificates. Implementations identify
// certificates by fingerprint, so adding a stored certificate again is a no-op.
type PermanentStore interface {
	Certificates(ctx context.Context) ([]*x509.Certificate, error)
	Add(ctx context.Context, certificate *x509.Certificate) error
	Clear(ctx context.Context) error
	Close() error
}

// MemoryStore is a PermanentStore that lives only as long as the process.
type MemoryStore struct {
	mutex              sync.Mutex
	certificatesByHash map[string]*x509.Certificate
	order              []string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{certificatesByHash: map[string]*x509.Certificate{}}
}

func (store *MemoryStore) Certificates(ctx context.Context) ([]*x509.Certificate, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	result := make([]*x509.Certificate, 0, len(store.order))
	for _, alias := range store.order {
		result = append(result, store.certificatesByHash[alias])
	}
	return result, nil
}

func (store *MemoryStore) Add(ctx context.Context, certificate *x509.Certificate) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	alias := certificates.Fingerprint(certificate)
	if _, exists := store.certificatesByHash[alias]; exists {
		return nil
	}
	store.certificatesByHash[alias] = certificate
	store.order = append(store.order, alias)
	return nil
}

func (store *MemoryStore) Clear(ctx context.Context) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.certificatesByHash = map[string]*x509.Certificate{}
	store.order = nil
	return nil
}

func (store *MemoryStore) Close() error {
	return nil
}
