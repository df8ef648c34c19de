package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enrollmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verification_enrollments_total",
		Help: "Face templates successfully enrolled",
	})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_checks_total",
		Help: "Liveness verifications, by outcome",
	}, []string{"outcome"})
)
