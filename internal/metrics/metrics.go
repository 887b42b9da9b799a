// Package metrics exposes Prometheus collectors for the match pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talentmatch_queue_enqueued_total",
		Help: "Messages accepted by the queue broker.",
	}, []string{"queue"})

	queueCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talentmatch_queue_completed_total",
		Help: "Messages acknowledged after successful processing.",
	}, []string{"queue"})

	queueRetried = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talentmatch_queue_retried_total",
		Help: "Messages scheduled for redelivery after a retryable failure.",
	}, []string{"queue"})

	queueDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talentmatch_queue_dead_lettered_total",
		Help: "Messages moved to the dead-letter stream after exhausting attempts.",
	}, []string{"queue"})

	analysisCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentmatch_analysis_calls_total",
		Help: "Calls made to the external analysis service.",
	})

	analysisUnavailable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentmatch_analysis_unavailable_total",
		Help: "Analysis responses that were empty or reported quota exhaustion.",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentmatch_cache_hits_total",
		Help: "Result cache lookups that returned a value.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentmatch_cache_misses_total",
		Help: "Result cache lookups that fell through to the authoritative path.",
	})
)

func RecordEnqueue(queue string)    { queueEnqueued.WithLabelValues(queue).Inc() }
func RecordComplete(queue string)   { queueCompleted.WithLabelValues(queue).Inc() }
func RecordRetry(queue string)      { queueRetried.WithLabelValues(queue).Inc() }
func RecordDeadLetter(queue string) { queueDeadLettered.WithLabelValues(queue).Inc() }

func RecordAnalysisCall()        { analysisCalls.Inc() }
func RecordAnalysisUnavailable() { analysisUnavailable.Inc() }

func RecordCacheHit()  { cacheHits.Inc() }
func RecordCacheMiss() { cacheMisses.Inc() }
