package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsTotal        atomic.Int64
	predictionFailures      atomic.Int64
	fallbackRecommendations atomic.Int64
	cacheHits               atomic.Int64
	eventsPublished         atomic.Int64
)

func IncPredictions()             { predictionsTotal.Add(1) }
func IncPredictionFailures()      { predictionFailures.Add(1) }
func IncFallbackRecommendations() { fallbackRecommendations.Add(1) }
func IncCacheHits()               { cacheHits.Add(1) }
func IncEventsPublished()         { eventsPublished.Add(1) }

// Reset zeroes all counters. Test hook.
func Reset() {
	predictionsTotal.Store(0)
	predictionFailures.Store(0)
	fallbackRecommendations.Store(0)
	cacheHits.Store(0)
	eventsPublished.Store(0)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP periop_serving_predictions_total Number of predictions served since process start.\n")
	fmt.Fprintf(w, "# TYPE periop_serving_predictions_total counter\n")
	fmt.Fprintf(w, "periop_serving_predictions_total %d\n", predictionsTotal.Load())

	fmt.Fprintf(w, "# HELP periop_serving_prediction_failures_total Number of requests rejected by validation or inference.\n")
	fmt.Fprintf(w, "# TYPE periop_serving_prediction_failures_total counter\n")
	fmt.Fprintf(w, "periop_serving_prediction_failures_total %d\n", predictionFailures.Load())

	fmt.Fprintf(w, "# HELP periop_serving_fallback_recommendations_total Number of recommendations answered by fallback rules instead of the medication map.\n")
	fmt.Fprintf(w, "# TYPE periop_serving_fallback_recommendations_total counter\n")
	fmt.Fprintf(w, "periop_serving_fallback_recommendations_total %d\n", fallbackRecommendations.Load())

	fmt.Fprintf(w, "# HELP periop_serving_cache_hits_total Number of predictions answered from the Redis response cache.\n")
	fmt.Fprintf(w, "# TYPE periop_serving_cache_hits_total counter\n")
	fmt.Fprintf(w, "periop_serving_cache_hits_total %d\n", cacheHits.Load())

	fmt.Fprintf(w, "# HELP periop_serving_events_published_total Number of prediction events published to Kafka.\n")
	fmt.Fprintf(w, "# TYPE periop_serving_events_published_total counter\n")
	fmt.Fprintf(w, "periop_serving_events_published_total %d\n", eventsPublished.Load())
}
