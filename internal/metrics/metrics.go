package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusInvalid = "invalid"
)

var (
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myapi_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status"}, // success, failure
	)

	RegistrationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myapi_registration_attempts_total",
			Help: "Total number of registration attempts",
		},
		[]string{"status"}, // success, invalid, failure
	)

	LoginDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "myapi_login_duration_seconds",
			Help:    "Time spent verifying credentials and issuing a token",
			Buckets: prometheus.DefBuckets,
		},
	)

	VariantDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "myapi_image_variant_duration_seconds",
			Help:    "Time spent resizing, encoding and writing one image variant",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"size"},
	)

	VariantsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "myapi_image_variants_swept_total",
			Help: "Orphaned image variants removed by the sweeper",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
