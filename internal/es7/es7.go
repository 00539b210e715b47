// Package es7 implements the migrator's client on top of the olivere
// Elasticsearch v7 client.
package es7

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/appbaseio/migrator/errors"
	"github.com/appbaseio/migrator/internal/wire"
	"github.com/appbaseio/migrator/model/reindex"
	"github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

const logTag = "[es7]"

// Client is a reindex.Client backed by an olivere v7 client.
type Client struct {
	es *elastic.Client
}

var _ reindex.Client = (*Client)(nil)

// New returns a client for the cluster at rawURL. The options are applied
// after the defaults, which disable sniffing.
func New(rawURL string, opts ...elastic.ClientOptionFunc) (*Client, error) {
	options := append([]elastic.ClientOptionFunc{
		elastic.SetURL(rawURL),
		elastic.SetSniff(false),
	}, opts...)
	client, err := elastic.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("error while initializing elastic v7 client: %w", err)
	}
	return &Client{es: client}, nil
}

// Wrap returns a client using an already configured olivere client.
func Wrap(client *elastic.Client) *Client {
	return &Client{es: client}
}

// Elastic returns the underlying olivere client.
func (c *Client) Elastic() *elastic.Client {
	return c.es
}

// Version returns the version of the node at rawURL.
func (c *Client) Version(rawURL string) (string, error) {
	return c.es.ElasticsearchVersion(rawURL)
}

// statusError attaches the HTTP status of an engine error so that callers
// can tell, for instance, service unavailable apart from other failures.
func statusError(op string, err error) error {
	if e, ok := err.(*elastic.Error); ok {
		return errors.NewStatusError(op, e.Status, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) perform(ctx context.Context, op string, opt elastic.PerformRequestOptions) (*elastic.Response, error) {
	res, err := c.es.PerformRequest(ctx, opt)
	if err != nil {
		return nil, statusError(op, err)
	}
	return res, nil
}

func (c *Client) GetIndex(ctx context.Context, index string) (map[string]reindex.IndexState, bool, error) {
	res, err := c.es.IndexGet(index).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, statusError("get index", err)
	}

	indices := make(map[string]reindex.IndexState, len(res))
	for name, state := range res {
		if state == nil {
			continue
		}
		indices[name] = reindex.IndexState{
			Aliases:  state.Aliases,
			Mappings: state.Mappings,
			Settings: state.Settings,
		}
	}
	return indices, true, nil
}

// Search and Scroll use raw requests: ScrollService keeps the scroll id to
// itself and reports the end of the scroll as io.EOF, while the reader must
// track the latest id and release the cursor on the empty page.
func (c *Client) Search(ctx context.Context, index string, size int, keepAlive string) (*reindex.SearchResponse, error) {
	res, err := c.perform(ctx, "search", elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   "/" + url.PathEscape(index) + "/_search",
		Params: url.Values{"scroll": []string{keepAlive}},
		Body:   wire.SearchBody(size),
	})
	if err != nil {
		return nil, err
	}
	return wire.Search(res.Body)
}

func (c *Client) Scroll(ctx context.Context, scrollID, keepAlive string) (*reindex.SearchResponse, error) {
	res, err := c.perform(ctx, "scroll", elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   "/_search/scroll",
		Body: map[string]interface{}{
			"scroll":    keepAlive,
			"scroll_id": scrollID,
		},
	})
	if err != nil {
		return nil, err
	}
	return wire.Search(res.Body)
}

func (c *Client) ClearScroll(ctx context.Context, scrollID string) error {
	_, err := c.es.ClearScroll(scrollID).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return statusError("clear scroll", err)
	}
	return nil
}

func (c *Client) Bulk(ctx context.Context, ops []reindex.BulkOperation) (*reindex.BulkResponse, error) {
	bulk := c.es.Bulk()
	for _, op := range ops {
		bulk.Add(elastic.NewBulkIndexRequest().
			Index(op.Index).
			Id(op.ID).
			Doc(op.Source))
	}
	res, err := bulk.Do(ctx)
	if err != nil {
		return nil, statusError("bulk", err)
	}

	out := &reindex.BulkResponse{Errors: res.Errors}
	for _, entry := range res.Items {
		for action, item := range entry {
			if item == nil {
				continue
			}
			raw, err := json.Marshal(entry)
			if err != nil {
				log.Warnln(logTag, ": unable to encode bulk item:", err)
			}
			result := reindex.BulkItem{
				Action: action,
				Index:  item.Index,
				ID:     item.Id,
				Status: item.Status,
				Raw:    raw,
			}
			if item.Error != nil {
				result.Error = &reindex.ErrorDetails{Type: item.Error.Type, Reason: item.Error.Reason}
			}
			out.Items = append(out.Items, result)
		}
	}
	return out, nil
}

func (c *Client) Reindex(ctx context.Context, req reindex.ReindexRequest) (string, error) {
	// The read slice size lives in source.size, which only the raw body
	// sets; ReindexService.Size caps the total number of documents instead.
	res, err := c.es.Reindex().
		Body(wire.ReindexBody(req)).
		WaitForCompletion(false).
		Refresh("true").
		DoAsync(ctx)
	if err != nil {
		return "", statusError("reindex", err)
	}
	if res.TaskId == "" {
		return "", fmt.Errorf("reindex: response carries no task id")
	}
	return res.TaskId, nil
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*reindex.TaskStatus, error) {
	res, err := c.es.TasksGetTask().TaskId(taskID).Do(ctx)
	if err != nil {
		return nil, statusError("get task", err)
	}
	// Encoded again so that every client reads the task error and the
	// reindex failures through the same decoder.
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("get task: encoding response: %w", err)
	}
	return wire.TaskStatus(raw)
}

func (c *Client) GetAlias(ctx context.Context, alias string) ([]string, error) {
	res, err := c.es.Aliases().Alias(alias).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return []string{}, nil
		}
		return nil, statusError("get alias", err)
	}
	names := make([]string, 0, len(res.Indices))
	for name := range res.Indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) UpdateAliases(ctx context.Context, actions []reindex.AliasAction) error {
	svc := c.es.Alias()
	for _, action := range actions {
		switch {
		case action.Add != nil:
			svc.Action(elastic.NewAliasAddAction(action.Add.Alias).Index(action.Add.Index))
		case action.Remove != nil:
			svc.Action(elastic.NewAliasRemoveAction(action.Remove.Alias).Index(action.Remove.Index))
		case action.RemoveIndex != nil:
			svc.Action(elastic.NewAliasRemoveIndexAction(action.RemoveIndex.Index))
		}
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return statusError("update aliases", err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("update aliases: acknowledged=false")
	}
	return nil
}

func (c *Client) Refresh(ctx context.Context, index string) error {
	if _, err := c.es.Refresh(index).Do(ctx); err != nil {
		return statusError("refresh", err)
	}
	return nil
}

// Count runs a search for no hits, since CountService only returns the
// number and drops the "_shards" block the shard check needs.
func (c *Client) Count(ctx context.Context, index string, query map[string]interface{}) (*reindex.CountResponse, error) {
	raw, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("count: encoding query: %w", err)
	}
	res, err := c.es.Search(index).
		Query(elastic.NewRawStringQuery(string(raw))).
		Size(0).
		TrackTotalHits(true).
		Do(ctx)
	if err != nil {
		return nil, statusError("count", err)
	}
	count := &reindex.CountResponse{Count: res.TotalHits()}
	if res.Shards != nil {
		count.Shards = &reindex.ShardsInfo{
			Total:      res.Shards.Total,
			Successful: res.Shards.Successful,
			Failed:     res.Shards.Failed,
		}
	}
	return count, nil
}

func (c *Client) CreateIndex(ctx context.Context, index string, body map[string]interface{}) error {
	res, err := c.es.CreateIndex(index).BodyJson(body).Do(ctx)
	if err != nil {
		return statusError("create index", err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("failed to create index named %q, acknowledged=false", index)
	}
	return nil
}

func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	res, err := c.es.DeleteIndex(index).Do(ctx)
	if err != nil {
		return statusError("delete index", err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("failed to delete index named %q, acknowledged=false", index)
	}
	return nil
}
