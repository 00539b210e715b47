// Package opensearch implements the migrator's client on top of the
// OpenSearch Go client.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/appbaseio/migrator/errors"
	"github.com/appbaseio/migrator/internal/wire"
	"github.com/appbaseio/migrator/model/reindex"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

// Client is a reindex.Client backed by an opensearchapi client.
type Client struct {
	api *opensearchapi.Client
}

var _ reindex.Client = (*Client)(nil)

// Config holds the connection settings of a Client.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Transport http.RoundTripper
	// MaxRetries is the number of retries of requests failing at the
	// transport level. Zero disables retries.
	MaxRetries int
}

// New returns a client for the given cluster.
func New(cfg Config) (*Client, error) {
	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:    cfg.Addresses,
			Username:     cfg.Username,
			Password:     cfg.Password,
			Transport:    cfg.Transport,
			DisableRetry: cfg.MaxRetries <= 0,
			MaxRetries:   cfg.MaxRetries,
			// Retrying on 503 would hide the only status the migration check retries itself.
			RetryOnStatus: []int{502, 504},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error while initializing opensearch client: %w", err)
	}
	return &Client{api: client}, nil
}

// FromURL returns a client for the cluster at rawURL, taking the
// credentials from the URL's user info.
func FromURL(rawURL string, transport http.RoundTripper, maxRetries int) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid cluster url: %w", err)
	}
	cfg := Config{Transport: transport, MaxRetries: maxRetries}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
		u.User = nil
	}
	cfg.Addresses = []string{u.String()}
	return New(cfg)
}

// statusOf returns the HTTP status of a typed response, zero when the
// request never got an answer.
func statusOf[R any, P interface {
	*R
	Inspect() opensearchapi.Inspect
}](res P) int {
	if res == nil {
		return 0
	}
	if raw := res.Inspect().Response; raw != nil {
		return raw.StatusCode
	}
	return 0
}

func failure(op string, status int, err error) error {
	if status == 0 {
		return fmt.Errorf("%s: %w", op, err)
	}
	return errors.NewStatusError(op, status, err)
}

// do sends a typed request and decodes the answer into v. It serves the
// calls whose answer is read beyond what the typed responses model: index
// mappings as sent by the cluster, task failures and task ids. Statuses in
// ignore are returned instead of failing.
func (c *Client) do(ctx context.Context, op string, req opensearch.Request, v interface{}, ignore ...int) (int, error) {
	res, err := c.api.Client.Do(ctx, req, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var body []byte
	if res.Body != nil {
		defer res.Body.Close()
		if body, err = ioutil.ReadAll(res.Body); err != nil {
			return 0, fmt.Errorf("%s: reading response: %w", op, err)
		}
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if v != nil {
			if err := json.Unmarshal(body, v); err != nil {
				return 0, fmt.Errorf("%s: decoding response: %w", op, err)
			}
		}
		return res.StatusCode, nil
	}
	for _, status := range ignore {
		if res.StatusCode == status {
			return res.StatusCode, nil
		}
	}
	return 0, errors.NewStatusError(op, res.StatusCode, fmt.Errorf("%s", wire.ErrorReason(body)))
}

func encode(op string, v interface{}) (*bytes.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", op, err)
	}
	return bytes.NewReader(raw), nil
}

func shards(s opensearchapi.ResponseShards) *reindex.ShardsInfo {
	return &reindex.ShardsInfo{Total: s.Total, Successful: s.Successful, Failed: s.Failed}
}

func searchResponse(scrollID *string, s opensearchapi.ResponseShards, hits []opensearchapi.SearchHit) (*reindex.SearchResponse, error) {
	res := &reindex.SearchResponse{Shards: shards(s)}
	if scrollID != nil {
		res.ScrollID = *scrollID
	}
	for _, hit := range hits {
		doc := reindex.RawDoc{ID: hit.ID}
		if len(hit.Source) > 0 {
			if err := json.Unmarshal(hit.Source, &doc.Source); err != nil {
				return nil, fmt.Errorf("decoding search hit %s: %w", hit.ID, err)
			}
		}
		res.Hits = append(res.Hits, doc)
	}
	return res, nil
}

func keepAliveOf(keepAlive string) (time.Duration, error) {
	d, err := time.ParseDuration(keepAlive)
	if err != nil {
		return 0, fmt.Errorf("invalid scroll duration %q: %w", keepAlive, err)
	}
	return d, nil
}

func (c *Client) GetIndex(ctx context.Context, index string) (map[string]reindex.IndexState, bool, error) {
	var raw json.RawMessage
	status, err := c.do(ctx, "get index", opensearchapi.IndicesGetReq{Indices: []string{index}}, &raw, http.StatusNotFound)
	if err != nil {
		return nil, false, err
	}
	if status == http.StatusNotFound {
		return nil, false, nil
	}
	indices, err := wire.Indices(raw)
	if err != nil {
		return nil, false, err
	}
	return indices, true, nil
}

func (c *Client) Search(ctx context.Context, index string, size int, keepAlive string) (*reindex.SearchResponse, error) {
	scroll, err := keepAliveOf(keepAlive)
	if err != nil {
		return nil, err
	}
	body, err := encode("search", wire.SearchBody(size))
	if err != nil {
		return nil, err
	}
	res, err := c.api.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{index},
		Body:    body,
		Params:  opensearchapi.SearchParams{Scroll: scroll},
	})
	if err != nil {
		return nil, failure("search", statusOf(res), err)
	}
	return searchResponse(res.ScrollID, res.Shards, res.Hits.Hits)
}

func (c *Client) Scroll(ctx context.Context, scrollID, keepAlive string) (*reindex.SearchResponse, error) {
	scroll, err := keepAliveOf(keepAlive)
	if err != nil {
		return nil, err
	}
	res, err := c.api.Scroll.Get(ctx, opensearchapi.ScrollGetReq{
		ScrollID: scrollID,
		Params:   opensearchapi.ScrollGetParams{Scroll: scroll},
	})
	if err != nil {
		return nil, failure("scroll", statusOf(res), err)
	}
	return searchResponse(res.ScrollID, res.Shards, res.Hits.Hits)
}

func (c *Client) ClearScroll(ctx context.Context, scrollID string) error {
	res, err := c.api.Scroll.Delete(ctx, opensearchapi.ScrollDeleteReq{ScrollIDs: []string{scrollID}})
	if err != nil {
		if status := statusOf(res); status != http.StatusNotFound {
			return failure("clear scroll", status, err)
		}
	}
	return nil
}

func (c *Client) Bulk(ctx context.Context, ops []reindex.BulkOperation) (*reindex.BulkResponse, error) {
	body, err := wire.BulkBody(ops)
	if err != nil {
		return nil, fmt.Errorf("bulk: encoding request: %w", err)
	}
	res, err := c.api.Bulk(ctx, opensearchapi.BulkReq{Body: bytes.NewReader(body)})
	if err != nil {
		return nil, failure("bulk", statusOf(res), err)
	}

	out := &reindex.BulkResponse{Errors: res.Errors}
	for _, entry := range res.Items {
		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("bulk: encoding item: %w", err)
		}
		for action, item := range entry {
			result := reindex.BulkItem{
				Action: action,
				Index:  item.Index,
				ID:     item.ID,
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
	body, err := encode("reindex", wire.ReindexBody(req))
	if err != nil {
		return "", err
	}
	waitForCompletion, refresh := false, true
	var raw json.RawMessage
	_, err = c.do(ctx, "reindex", opensearchapi.ReindexReq{
		Body: body,
		Params: opensearchapi.ReindexParams{
			WaitForCompletion: &waitForCompletion,
			Refresh:           &refresh,
		},
	}, &raw)
	if err != nil {
		return "", err
	}
	return wire.TaskID(raw)
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*reindex.TaskStatus, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, "get task", opensearchapi.TasksGetReq{TaskID: taskID}, &raw); err != nil {
		return nil, err
	}
	return wire.TaskStatus(raw)
}

func (c *Client) GetAlias(ctx context.Context, alias string) ([]string, error) {
	res, err := c.api.Indices.Alias.Get(ctx, opensearchapi.AliasGetReq{Alias: []string{alias}})
	if err != nil {
		status := statusOf(res)
		if status == http.StatusNotFound {
			return []string{}, nil
		}
		return nil, failure("get alias", status, err)
	}
	names := make([]string, 0, len(res.Indices))
	for name := range res.Indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) UpdateAliases(ctx context.Context, actions []reindex.AliasAction) error {
	body, err := encode("update aliases", wire.AliasesBody(actions))
	if err != nil {
		return err
	}
	res, err := c.api.Aliases(ctx, opensearchapi.AliasesReq{Body: body})
	if err != nil {
		return failure("update aliases", statusOf(res), err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("update aliases: acknowledged=false")
	}
	return nil
}

func (c *Client) Refresh(ctx context.Context, index string) error {
	res, err := c.api.Indices.Refresh(ctx, &opensearchapi.IndicesRefreshReq{Indices: []string{index}})
	if err != nil {
		return failure("refresh", statusOf(res), err)
	}
	return nil
}

func (c *Client) Count(ctx context.Context, index string, query map[string]interface{}) (*reindex.CountResponse, error) {
	body, err := encode("count", wire.CountBody(query))
	if err != nil {
		return nil, err
	}
	res, err := c.api.Indices.Count(ctx, &opensearchapi.IndicesCountReq{
		Indices: []string{index},
		Body:    body,
	})
	if err != nil {
		return nil, failure("count", statusOf(res), err)
	}
	return &reindex.CountResponse{Count: int64(res.Count), Shards: &reindex.ShardsInfo{Total: res.Shards.Total, Successful: res.Shards.Successful, Failed: res.Shards.Failed}}, nil
}

func (c *Client) CreateIndex(ctx context.Context, index string, body map[string]interface{}) error {
	reader, err := encode("create index", body)
	if err != nil {
		return err
	}
	res, err := c.api.Indices.Create(ctx, opensearchapi.IndicesCreateReq{Index: index, Body: reader})
	if err != nil {
		return failure("create index", statusOf(res), err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("failed to create index named %q, acknowledged=false", index)
	}
	return nil
}

func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	res, err := c.api.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{Indices: []string{index}})
	if err != nil {
		return failure("delete index", statusOf(res), err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("failed to delete index named %q, acknowledged=false", index)
	}
	return nil
}
