package reindex

import (
	"context"
	"fmt"
	"time"

	"github.com/appbaseio/migrator/errors"
	log "github.com/sirupsen/logrus"
)

// reindex copies source into dest with a server side reindex task, reading
// batchSize documents at a time and applying script to each document when
// one is given. The task is submitted without waiting for completion, since
// large indices would outlive the request timeout, and is then polled every
// pollInterval until it completes. There is no limit on the number of
// polls: ctx bounds the total time.
func (m *Migrator) reindex(ctx context.Context, source, dest string, batchSize int, script string) error {
	taskID, err := m.client.Reindex(ctx, ReindexRequest{
		Source: source,
		Dest:   dest,
		Size:   batchSize,
		Script: script,
	})
	if err != nil {
		return fmt.Errorf("submitting reindex of %q into %q: %w", source, dest, err)
	}
	log.Println(logTag, ": reindexing", source, "into", dest, "with task", taskID)

	for {
		select {
		case <-ctx.Done():
			reindexTasks.WithLabelValues("cancelled").Inc()
			return fmt.Errorf("waiting for reindex task %s: %w", taskID, ctx.Err())
		case <-time.After(m.pollInterval):
		}

		completed, err := m.isTaskCompleted(ctx, taskID)
		if err != nil {
			reindexTasks.WithLabelValues("failed").Inc()
			return err
		}
		if completed {
			break
		}
		log.Debugln(logTag, ":", taskID, "task is still re-indexing data...")
	}

	reindexTasks.WithLabelValues("completed").Inc()
	log.Println(logTag, ":", taskID, "task completed successfully")
	return nil
}

// isTaskCompleted polls a reindex task once. A task reporting an error, or
// completing with document failures or failed shards, is an error.
func (m *Migrator) isTaskCompleted(ctx context.Context, taskID string) (bool, error) {
	reindexPolls.Inc()
	status, err := m.client.GetTask(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("getting status of reindex task %s: %w", taskID, err)
	}

	if status.Error != nil {
		return false, errors.NewReindexTaskError(taskID, status.Error.Type, status.Error.Reason, status.Raw)
	}
	if !status.Completed {
		return false, nil
	}

	if len(status.Failures) > 0 {
		cause := status.Failures[0].Cause
		return false, errors.NewReindexTaskError(taskID, cause.Type, cause.Reason, status.Raw)
	}
	if err := assertAllShardsOk("re-index", status.Shards); err != nil {
		return false, err
	}
	return true, nil
}
