package reindex

import (
	"time"
)

const logTag = "[reindex]"

const (
	// DefaultPollInterval is the delay between two reindex task status polls.
	DefaultPollInterval = 250 * time.Millisecond
	// DefaultRetryWait is the delay before a migration status check is
	// retried after the cluster answered with service unavailable.
	DefaultRetryWait = time.Second
	// DefaultRetries is the number of times a migration status check is retried.
	DefaultRetries = 10
	// DefaultBatchSize is the number of documents read per batch.
	DefaultBatchSize = 10
	// DefaultScrollDuration is the keep alive of a reader's scroll.
	DefaultScrollDuration = "15m"
)

// Migrator performs index migrations through a Client. It holds no state
// between calls other than its configuration, so a single instance may be
// shared by concurrent migrations of different indices.
type Migrator struct {
	client       Client
	pollInterval time.Duration
	retryWait    time.Duration
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithPollInterval sets the delay between reindex task polls.
func WithPollInterval(d time.Duration) Option {
	return func(m *Migrator) {
		m.pollInterval = d
	}
}

// WithRetryWait sets the delay before a service unavailable status check is retried.
func WithRetryWait(d time.Duration) Option {
	return func(m *Migrator) {
		m.retryWait = d
	}
}

// New returns a Migrator issuing its requests through client.
func New(client Client, opts ...Option) *Migrator {
	m := &Migrator{
		client:       client,
		pollInterval: DefaultPollInterval,
		retryWait:    DefaultRetryWait,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Client returns the client the migrator was created with.
func (m *Migrator) Client() Client {
	return m.client
}
