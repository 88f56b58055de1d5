package credit

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_consumed_total",
		Help: "Credits debited from user balances",
	}, []string{"scene"})

	GrantedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_granted_total",
		Help: "Credits granted to users",
	}, []string{"scene"})

	ConsumeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_consume_failures_total",
		Help: "Rejected or failed consumption attempts",
	}, []string{"reason"})

	ConsumeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "credit_consume_duration_seconds",
		Help:    "Wall time of a consumption transaction",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	ExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credit_expired_total",
		Help: "Grants moved to expired by the sweep",
	})
)

// RegisterMetrics registers the ledger collectors on reg (default registry if nil).
// Registering twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{ConsumedTotal, GrantedTotal, ConsumeFailures, ConsumeDuration, ExpiredTotal} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		return "insufficient"
	case errors.Is(err, ErrTooManyBatches):
		return "too_many_batches"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "error"
	}
}
