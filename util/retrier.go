package util

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"time"

	"github.com/olivere/elastic/v7"
)

// Retrier retries requests that failed at the transport level with an
// exponential backoff.
type Retrier struct {
	backoff    elastic.Backoff
	maxRetries int
}

// NewRetrier returns a new retrier with exponential backoff strategy
// that gives up after maxRetries attempts.
func NewRetrier(maxRetries int) *Retrier {
	return &Retrier{
		backoff:    elastic.NewExponentialBackoff(10*time.Millisecond, 8*time.Second),
		maxRetries: maxRetries,
	}
}

// Retry is a custom retry implementation.
func (r *Retrier) Retry(ctx context.Context, retry int, req *http.Request, resp *http.Response, err error) (time.Duration, bool, error) {
	// Fail hard on a specific error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return 0, false, errors.New("Elasticsearch or network down")
	}

	if retry >= r.maxRetries {
		return 0, false, nil
	}

	// Let the backoff strategy decide how long to wait and whether to stop
	wait, ok := r.backoff.Next(retry)
	return wait, ok, nil
}
