package reindex

import (
	"context"
	"encoding/json"
)

// Client is the set of search engine operations the migrator depends on.
// Implementations live in internal/es7 and internal/opensearch; tests use
// an in-memory cluster.
type Client interface {
	// GetIndex returns the state of the index (or of every index an alias
	// points to), keyed by concrete index name. A missing index is reported
	// with found=false and a nil error.
	GetIndex(ctx context.Context, index string) (indices map[string]IndexState, found bool, err error)

	// Search opens a scroll over index returning at most size hits.
	Search(ctx context.Context, index string, size int, keepAlive string) (*SearchResponse, error)

	// Scroll fetches the next page of an open scroll.
	Scroll(ctx context.Context, scrollID, keepAlive string) (*SearchResponse, error)

	// ClearScroll releases a scroll. Releasing an unknown scroll is not an error.
	ClearScroll(ctx context.Context, scrollID string) error

	// Bulk executes the operations in a single bulk request.
	Bulk(ctx context.Context, ops []BulkOperation) (*BulkResponse, error)

	// Reindex submits an asynchronous reindex task and returns its id.
	Reindex(ctx context.Context, req ReindexRequest) (taskID string, err error)

	// GetTask returns the status of a task.
	GetTask(ctx context.Context, taskID string) (*TaskStatus, error)

	// GetAlias returns the indices an alias is bound to. A missing alias
	// yields an empty slice and a nil error.
	GetAlias(ctx context.Context, alias string) ([]string, error)

	// UpdateAliases applies all actions in one atomic request.
	UpdateAliases(ctx context.Context, actions []AliasAction) error

	Refresh(ctx context.Context, index string) error

	// Count counts the documents of index matching query.
	Count(ctx context.Context, index string, query map[string]interface{}) (*CountResponse, error)

	CreateIndex(ctx context.Context, index string, body map[string]interface{}) error

	DeleteIndex(ctx context.Context, index string) error
}

// IndexState is the per index entry of a get-index response.
type IndexState struct {
	Aliases  map[string]interface{} `json:"aliases"`
	Mappings map[string]interface{} `json:"mappings"`
	Settings map[string]interface{} `json:"settings,omitempty"`
}

// ShardsInfo is the "_shards" block attached to search, count and refresh responses.
type ShardsInfo struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// SearchResponse is one page of a scroll.
type SearchResponse struct {
	ScrollID string      `json:"_scroll_id"`
	Shards   *ShardsInfo `json:"_shards,omitempty"`
	Hits     []RawDoc    `json:"hits"`
}

// CountResponse is the response of a count request.
type CountResponse struct {
	Count  int64       `json:"count"`
	Shards *ShardsInfo `json:"_shards,omitempty"`
}

// BulkOperation indexes Source under ID into Index.
type BulkOperation struct {
	Index  string
	ID     string
	Source map[string]interface{}
}

// BulkResponse is the per item outcome of a bulk request, in request order.
type BulkResponse struct {
	Errors bool       `json:"errors"`
	Items  []BulkItem `json:"items"`
}

// BulkItem is the outcome of one bulk operation. Raw holds the item exactly
// as the engine returned it.
type BulkItem struct {
	Action string          `json:"action"`
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  *ErrorDetails   `json:"error,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

// ErrorDetails is the error descriptor used by the engine in bulk items and tasks.
type ErrorDetails struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ReindexRequest describes a server side copy from Source into Dest. Size is
// the number of documents read per scroll batch. Script, when set, is a
// painless script applied to every document.
type ReindexRequest struct {
	Source string
	Dest   string
	Size   int
	Script string
}

// TaskStatus is the state of an asynchronous task.
type TaskStatus struct {
	Completed bool
	// Error is set when the task itself failed.
	Error *ErrorDetails
	// Failures holds the per document failures of a completed reindex.
	Failures []ReindexFailure
	// Shards is the "_shards" block of the completed task response, if any.
	Shards *ShardsInfo
	// Raw is the task response body.
	Raw json.RawMessage
}

// ReindexFailure is one entry of a reindex response's "failures" array.
type ReindexFailure struct {
	Index string       `json:"index"`
	ID    string       `json:"id"`
	Cause ErrorDetails `json:"cause"`
}
