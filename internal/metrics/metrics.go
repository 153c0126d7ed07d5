// Package metrics exposes prometheus instrumentation for the classification
// engine and the background task runner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InstantHits counts hybrid tier-1 instant pattern classifications.
	InstantHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontosort_classifier_instant_hits_total",
		Help: "Total classifications resolved by the instant pattern table",
	})

	// RuleHits counts hybrid tier-2 rule-based classifications.
	RuleHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontosort_classifier_rule_hits_total",
		Help: "Total classifications resolved by rule patterns",
	})

	// LLMCalls counts escalations to the remote LLM classifier.
	LLMCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontosort_classifier_llm_calls_total",
		Help: "Total classification requests sent to the LLM",
	})

	// CacheHits counts LLM responses served from the local LRU cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kontosort_classifier_cache_hits_total",
		Help: "Total LLM classifications served from cache",
	})

	// TasksTotal counts background tasks by terminal status.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kontosort_tasks_total",
		Help: "Total background tasks by terminal status",
	}, []string{"status"})

	// TaskProgress tracks the running task's progress percentage.
	TaskProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kontosort_task_progress_percent",
		Help: "Progress of the currently running background task",
	})
)
