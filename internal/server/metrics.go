package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tyemirov/certtrust/internal/certificates/trust"
)

const metricsNamespace = "certtrust"

// Metrics records certificate store activity.
type Metrics struct {
	CertificatesAdded   *prometheus.CounterVec
	CertificatesPurged  *prometheus.CounterVec
	KeyStoreExports     *prometheus.CounterVec
	TrustedCertificates *prometheus.GaugeVec
}

// NewMetrics registers the metrics with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		CertificatesAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "certificates_added_total",
			Help:      "Certificates added to the trust store by origin",
		}, []string{"origin"}),
		CertificatesPurged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "certificate_purges_total",
			Help:      "Purge requests by scope",
		}, []string{"scope"}),
		KeyStoreExports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "keystore_exports_total",
			Help:      "Keystore downloads by format",
		}, []string{"format"}),
		TrustedCertificates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "trusted_certificates",
			Help:      "Trusted certificates by origin as of the last snapshot",
		}, []string{"origin"}),
	}
}

func (metrics *Metrics) observeSnapshot(keyStore trust.KeyStore) {
	counts := map[trust.Origin]int{trust.OriginTemporary: 0, trust.OriginPermanent: 0}
	for _, entry := range keyStore.Entries() {
		counts[entry.Origin]++
	}
	for origin, count := range counts {
		metrics.TrustedCertificates.WithLabelValues(string(origin)).Set(float64(count))
	}
}
