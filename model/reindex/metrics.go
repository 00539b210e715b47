package reindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Name:      "documents_written_total",
		Help:      "Documents written by bulk requests, by destination index.",
	}, []string{"index"})

	reindexPolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "migrator",
		Name:      "reindex_task_polls_total",
		Help:      "Status polls issued for asynchronous reindex tasks.",
	})

	reindexTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Name:      "reindex_tasks_total",
		Help:      "Asynchronous reindex tasks by outcome.",
	}, []string{"outcome"})

	aliasCutovers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "migrator",
		Name:      "alias_cutovers_total",
		Help:      "Atomic alias updates submitted.",
	})

	statusChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Name:      "status_checks_total",
		Help:      "Migration status checks by result.",
	}, []string{"result"})

	statusRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "migrator",
		Name:      "status_check_retries_total",
		Help:      "Migration status checks retried after a service unavailable answer.",
	})
)
