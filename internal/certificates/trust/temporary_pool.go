package trust

import (
	"crypto/x509"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tyemirov/certtrust/internal/certificates"
)

const minimumCleanupInterval = time.Second

// temporaryPool holds temporary certificates in process memory. Entries are
// forgotten when purged, when the process exits, or after lifetime elapses
// when lifetime is positive.
type temporaryPool struct {
	cache    *gocache.Cache
	lifetime time.Duration
}

func newTemporaryPool(lifetime time.Duration) *temporaryPool {
	if lifetime <= 0 {
		return &temporaryPool{cache: gocache.New(gocache.NoExpiration, 0)}
	}
	cleanupInterval := lifetime
	if cleanupInterval < minimumCleanupInterval {
		cleanupInterval = minimumCleanupInterval
	}
	return &temporaryPool{cache: gocache.New(lifetime, cleanupInterval), lifetime: lifetime}
}

func (pool *temporaryPool) add(certificate *x509.Certificate) {
	pool.cache.Set(certificates.Fingerprint(certificate), certificate, gocache.DefaultExpiration)
}

// certificates returns the unexpired entries.
func (pool *temporaryPool) certificates() []*x509.Certificate {
	items := pool.cache.Items()
	result := make([]*x509.Certificate, 0, len(items))
	for _, item := range items {
		certificate, ok := item.Object.(*x509.Certificate)
		if !ok {
			continue
		}
		result = append(result, certificate)
	}
	return result
}

func (pool *temporaryPool) purge() {
	pool.cache.Flush()
}
