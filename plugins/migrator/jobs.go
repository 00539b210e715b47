package migrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/appbaseio/migrator/model/reindex"
	"github.com/appbaseio/migrator/util"
	log "github.com/sirupsen/logrus"
)

// JobStatus is the state of a migration job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a migration running in the background.
type Job struct {
	ID         string          `json:"id"`
	Alias      string          `json:"alias"`
	Status     JobStatus       `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Result     *reindex.Result `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// runFunc performs the work of a job identified by id.
type runFunc func(ctx context.Context, id string) (*reindex.Result, error)

type jobs struct {
	mu   sync.RWMutex
	byID map[string]*Job
	wg   sync.WaitGroup
}

func newJobs() *jobs {
	return &jobs{byID: make(map[string]*Job)}
}

// start runs fn in the background under timeout and returns the
// registered job.
func (j *jobs) start(alias string, timeout time.Duration, fn runFunc) Job {
	job := &Job{
		ID:        util.RandStr(),
		Alias:     alias,
		Status:    JobRunning,
		StartedAt: time.Now(),
	}
	j.mu.Lock()
	j.byID[job.ID] = job
	snapshot := *job
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := fn(ctx, job.ID)
		j.finish(job.ID, result, err)
	}()
	return snapshot
}

func (j *jobs) finish(id string, result *reindex.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	job := j.byID[id]
	now := time.Now()
	job.FinishedAt = &now
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		log.Errorln(logTag, ": migration job", id, "of", job.Alias, "failed:", err)
		return
	}
	job.Status = JobSucceeded
	job.Result = result
	log.Println(logTag, ": migration job", id, "of", job.Alias, "succeeded")
}

// get returns a copy of the job with the given id.
func (j *jobs) get(id string) (Job, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.byID[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// list returns a copy of every job, oldest first.
func (j *jobs) list() []Job {
	j.mu.RLock()
	list := make([]Job, 0, len(j.byID))
	for _, job := range j.byID {
		list = append(list, *job)
	}
	j.mu.RUnlock()

	sort.Slice(list, func(a, b int) bool {
		if list[a].StartedAt.Equal(list[b].StartedAt) {
			return list[a].ID < list[b].ID
		}
		return list[a].StartedAt.Before(list[b].StartedAt)
	})
	return list
}

// wait blocks until every started job is finished.
func (j *jobs) wait() {
	j.wg.Wait()
}
