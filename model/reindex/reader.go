package reindex

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Reader serves the documents of an index in batches through a scroll.
// A Reader is single use and must not be shared between goroutines. The
// scroll is released as soon as an empty batch is read; callers that stop
// early must call Close.
type Reader struct {
	client    Client
	index     string
	batchSize int
	keepAlive string

	scrollID  string
	started   bool
	exhausted bool
}

// NewReader returns a Reader over index. A zero batchSize or empty
// keepAlive fall back to DefaultBatchSize and DefaultScrollDuration.
func (m *Migrator) NewReader(index string, batchSize int, keepAlive string) *Reader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if keepAlive == "" {
		keepAlive = DefaultScrollDuration
	}
	return &Reader{
		client:    m.client,
		index:     index,
		batchSize: batchSize,
		keepAlive: keepAlive,
	}
}

// Read returns the next batch of documents. An empty batch marks the end of
// the index; every later call returns an empty batch as well.
func (r *Reader) Read(ctx context.Context) ([]RawDoc, error) {
	if r.exhausted {
		return nil, r.Close(ctx)
	}

	res, err := r.nextBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading batch from index %q: %w", r.index, err)
	}
	r.started = true
	// The scroll id may change from one page to the next.
	if res.ScrollID != "" {
		r.scrollID = res.ScrollID
	}
	if err := assertAllShardsOk("read", res.Shards); err != nil {
		return nil, err
	}

	if len(res.Hits) == 0 {
		r.exhausted = true
		log.Debugln(logTag, ": reached the end of index", r.index)
		if err := r.Close(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return res.Hits, nil
}

func (r *Reader) nextBatch(ctx context.Context) (*SearchResponse, error) {
	if !r.started {
		return r.client.Search(ctx, r.index, r.batchSize, r.keepAlive)
	}
	if r.scrollID == "" {
		return nil, fmt.Errorf("no scroll id to continue from")
	}
	return r.client.Scroll(ctx, r.scrollID, r.keepAlive)
}

// Close releases the scroll held by the reader, if any. It is safe to call
// Close more than once. A closed reader reads as exhausted.
func (r *Reader) Close(ctx context.Context) error {
	r.exhausted = true
	if r.scrollID == "" {
		return nil
	}
	scrollID := r.scrollID
	r.scrollID = ""
	if err := r.client.ClearScroll(ctx, scrollID); err != nil {
		return fmt.Errorf("clearing scroll of index %q: %w", r.index, err)
	}
	return nil
}
