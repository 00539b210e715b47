package reindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/appbaseio/migrator/errors"
)

// fakeCluster is an in-memory search engine. It keeps enough state to run
// whole migrations and lets tests inject failures per operation.
type fakeCluster struct {
	mu sync.Mutex

	indices map[string]*fakeIndex
	scrolls map[string]*fakeScroll
	tasks   map[string]*fakeTask

	scrollSeq int
	taskSeq   int

	// injected behaviour
	failures     map[string][]error
	searchShards *ShardsInfo
	countShards  *ShardsInfo
	bulkErrors   map[string]ErrorDetails
	taskPolls    []TaskStatus
	completeIn   int
	// hold, when set, keeps every task poll waiting until it is closed.
	hold chan struct{}

	// recorded calls
	calls          []string
	cleared        []string
	bulkRequests   int
	reindexes      []ReindexRequest
	aliasRequests  [][]AliasAction
	refreshed      []string
	pollTimes      []time.Time
	countQueries   []map[string]interface{}
	createdIndices map[string]map[string]interface{}
}

type fakeIndex struct {
	mappings map[string]interface{}
	aliases  map[string]interface{}
	docs     []RawDoc
}

type fakeScroll struct {
	docs []RawDoc
	pos  int
	size int
}

type fakeTask struct {
	req    ReindexRequest
	docs   []RawDoc
	polls  int
	copied bool
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		indices:        make(map[string]*fakeIndex),
		scrolls:        make(map[string]*fakeScroll),
		tasks:          make(map[string]*fakeTask),
		failures:       make(map[string][]error),
		bulkErrors:     make(map[string]ErrorDetails),
		completeIn:     1,
		createdIndices: make(map[string]map[string]interface{}),
	}
}

// addIndex creates a concrete index holding n documents with ids doc-0 .. doc-(n-1).
func (c *fakeCluster) addIndex(name string, mappings map[string]interface{}, n int) *fakeIndex {
	idx := &fakeIndex{
		mappings: mappings,
		aliases:  map[string]interface{}{},
	}
	for i := 0; i < n; i++ {
		idx.docs = append(idx.docs, RawDoc{
			ID:     fmt.Sprintf("doc-%d", i),
			Source: map[string]interface{}{"n": float64(i)},
		})
	}
	c.indices[name] = idx
	return idx
}

func (c *fakeCluster) bind(index, alias string) {
	c.indices[index].aliases[alias] = map[string]interface{}{}
}

// failNext makes the next times calls of op fail with err.
func (c *fakeCluster) failNext(op string, err error, times int) {
	for i := 0; i < times; i++ {
		c.failures[op] = append(c.failures[op], err)
	}
}

func (c *fakeCluster) called(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == op {
			n++
		}
	}
	return n
}

func (c *fakeCluster) enter(op string) error {
	c.calls = append(c.calls, op)
	queue := c.failures[op]
	if len(queue) == 0 {
		return nil
	}
	c.failures[op] = queue[1:]
	return queue[0]
}

func unavailable(op string) error {
	return errors.NewStatusError(op, http.StatusServiceUnavailable, fmt.Errorf("cluster_block_exception"))
}

func notFound(op, name string) error {
	return errors.NewStatusError(op, http.StatusNotFound, fmt.Errorf("no such index [%s]", name))
}

// resolve returns the concrete indices name refers to, sorted.
func (c *fakeCluster) resolve(name string) []string {
	if _, ok := c.indices[name]; ok {
		return []string{name}
	}
	var names []string
	for index, idx := range c.indices {
		if _, ok := idx.aliases[name]; ok {
			names = append(names, index)
		}
	}
	sort.Strings(names)
	return names
}

func (c *fakeCluster) docsOf(name string) []RawDoc {
	var docs []RawDoc
	for _, index := range c.resolve(name) {
		docs = append(docs, c.indices[index].docs...)
	}
	return docs
}

func (c *fakeCluster) GetIndex(ctx context.Context, index string) (map[string]IndexState, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("GetIndex"); err != nil {
		return nil, false, err
	}
	names := c.resolve(index)
	if len(names) == 0 {
		return nil, false, nil
	}
	states := make(map[string]IndexState, len(names))
	for _, name := range names {
		idx := c.indices[name]
		aliases := make(map[string]interface{}, len(idx.aliases))
		for k, v := range idx.aliases {
			aliases[k] = v
		}
		states[name] = IndexState{Aliases: aliases, Mappings: idx.mappings}
	}
	return states, true, nil
}

func (c *fakeCluster) Search(ctx context.Context, index string, size int, keepAlive string) (*SearchResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Search"); err != nil {
		return nil, err
	}
	if len(c.resolve(index)) == 0 {
		return nil, notFound("search", index)
	}
	c.scrollSeq++
	s := &fakeScroll{docs: c.docsOf(index), size: size}
	return c.page(fmt.Sprintf("scroll-%d", c.scrollSeq), s), nil
}

func (c *fakeCluster) Scroll(ctx context.Context, scrollID, keepAlive string) (*SearchResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Scroll"); err != nil {
		return nil, err
	}
	s, ok := c.scrolls[scrollID]
	if !ok {
		return nil, errors.NewStatusError("scroll", http.StatusNotFound, fmt.Errorf("search_context_missing_exception"))
	}
	delete(c.scrolls, scrollID)
	return c.page(scrollID, s), nil
}

// page serves the next page of s under a scroll id that changes on every page.
func (c *fakeCluster) page(prefix string, s *fakeScroll) *SearchResponse {
	end := s.pos + s.size
	if end > len(s.docs) {
		end = len(s.docs)
	}
	hits := append([]RawDoc(nil), s.docs[s.pos:end]...)
	s.pos = end

	id := fmt.Sprintf("%s-p%d", strings.SplitN(prefix, "-p", 2)[0], s.pos)
	c.scrolls[id] = s

	shards := c.searchShards
	if shards == nil {
		shards = &ShardsInfo{Total: 1, Successful: 1}
	}
	return &SearchResponse{ScrollID: id, Shards: shards, Hits: hits}
}

func (c *fakeCluster) ClearScroll(ctx context.Context, scrollID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ClearScroll"); err != nil {
		return err
	}
	c.cleared = append(c.cleared, scrollID)
	delete(c.scrolls, scrollID)
	return nil
}

func (c *fakeCluster) openScrolls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scrolls)
}

func (c *fakeCluster) Bulk(ctx context.Context, ops []BulkOperation) (*BulkResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Bulk"); err != nil {
		return nil, err
	}
	c.bulkRequests++

	res := &BulkResponse{}
	for _, op := range ops {
		item := BulkItem{Action: "index", Index: op.Index, ID: op.ID, Status: http.StatusCreated}
		idx, ok := c.indices[op.Index]
		if details, failed := c.bulkErrors[op.ID]; failed {
			d := details
			item.Error, item.Status = &d, http.StatusBadRequest
		} else if !ok {
			item.Error = &ErrorDetails{Type: "index_not_found_exception", Reason: "no such index [" + op.Index + "]"}
			item.Status = http.StatusNotFound
		} else {
			idx.upsert(RawDoc{ID: op.ID, Source: op.Source})
		}
		if item.Error != nil {
			res.Errors = true
		}
		item.Raw, _ = json.Marshal(item)
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func (idx *fakeIndex) upsert(doc RawDoc) {
	for i := range idx.docs {
		if idx.docs[i].ID == doc.ID {
			idx.docs[i] = doc
			return
		}
	}
	idx.docs = append(idx.docs, doc)
}

func (c *fakeCluster) Reindex(ctx context.Context, req ReindexRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Reindex"); err != nil {
		return "", err
	}
	if len(c.resolve(req.Source)) == 0 {
		return "", notFound("reindex", req.Source)
	}
	c.reindexes = append(c.reindexes, req)
	c.taskSeq++
	id := fmt.Sprintf("node-1:%d", c.taskSeq)
	c.tasks[id] = &fakeTask{req: req, docs: c.docsOf(req.Source)}
	return id, nil
}

func (c *fakeCluster) GetTask(ctx context.Context, taskID string) (*TaskStatus, error) {
	if c.hold != nil {
		<-c.hold
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollTimes = append(c.pollTimes, time.Now())
	if err := c.enter("GetTask"); err != nil {
		return nil, err
	}
	t, ok := c.tasks[taskID]
	if !ok {
		return nil, errors.NewStatusError("tasks", http.StatusNotFound, fmt.Errorf("task [%s] isn't running", taskID))
	}
	t.polls++

	status := TaskStatus{Completed: t.polls >= c.completeIn}
	if len(c.taskPolls) > 0 {
		i := t.polls - 1
		if i >= len(c.taskPolls) {
			i = len(c.taskPolls) - 1
		}
		status = c.taskPolls[i]
	}
	if status.Completed && status.Error == nil && !t.copied {
		t.copied = true
		if dest, ok := c.indices[t.req.Dest]; ok {
			for _, doc := range t.docs {
				dest.upsert(doc)
			}
		}
	}
	if status.Raw == nil {
		status.Raw, _ = json.Marshal(map[string]interface{}{"completed": status.Completed, "task": taskID})
	}
	return &status, nil
}

func (c *fakeCluster) GetAlias(ctx context.Context, alias string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("GetAlias"); err != nil {
		return nil, err
	}
	var names []string
	for index, idx := range c.indices {
		if _, ok := idx.aliases[alias]; ok {
			names = append(names, index)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *fakeCluster) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("UpdateAliases"); err != nil {
		return err
	}
	c.aliasRequests = append(c.aliasRequests, actions)

	// All or nothing, like the engine.
	for _, a := range actions {
		if a.Add == nil {
			continue
		}
		if _, ok := c.indices[a.Add.Index]; !ok {
			return notFound("update aliases", a.Add.Index)
		}
	}
	for _, a := range actions {
		switch {
		case a.RemoveIndex != nil:
			delete(c.indices, a.RemoveIndex.Index)
		case a.Remove != nil:
			if idx, ok := c.indices[a.Remove.Index]; ok {
				delete(idx.aliases, a.Remove.Alias)
			}
		case a.Add != nil:
			c.indices[a.Add.Index].aliases[a.Add.Alias] = map[string]interface{}{}
		}
	}
	return nil
}

func (c *fakeCluster) Refresh(ctx context.Context, index string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Refresh"); err != nil {
		return err
	}
	c.refreshed = append(c.refreshed, index)
	return nil
}

func (c *fakeCluster) Count(ctx context.Context, index string, query map[string]interface{}) (*CountResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Count"); err != nil {
		return nil, err
	}
	c.countQueries = append(c.countQueries, query)
	res := &CountResponse{Shards: c.countShards}
	if res.Shards == nil {
		res.Shards = &ShardsInfo{Total: 1, Successful: 1}
	}
	for _, doc := range c.docsOf(index) {
		if matches(query, doc.Source) {
			res.Count++
		}
	}
	return res, nil
}

func (c *fakeCluster) CreateIndex(ctx context.Context, index string, body map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateIndex"); err != nil {
		return err
	}
	if len(c.resolve(index)) > 0 {
		return errors.NewStatusError("create index", http.StatusBadRequest,
			fmt.Errorf("resource_already_exists_exception: index [%s] already exists", index))
	}
	c.createdIndices[index] = body

	var mappings map[string]interface{}
	switch m := body["mappings"].(type) {
	case Mappings:
		mappings = m
	case map[string]interface{}:
		mappings = m
	}
	c.indices[index] = &fakeIndex{mappings: mappings, aliases: map[string]interface{}{}}
	return nil
}

func (c *fakeCluster) DeleteIndex(ctx context.Context, index string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("DeleteIndex"); err != nil {
		return err
	}
	if _, ok := c.indices[index]; !ok {
		return notFound("delete index", index)
	}
	delete(c.indices, index)
	return nil
}

// matches evaluates the subset of the query DSL the migrator emits.
func matches(query map[string]interface{}, source map[string]interface{}) bool {
	for kind, body := range query {
		switch kind {
		case "match_all":
		case "exists":
			field := body.(map[string]interface{})["field"].(string)
			if _, ok := lookup(source, field); !ok {
				return false
			}
		case "term":
			for field, want := range body.(map[string]interface{}) {
				got, ok := lookup(source, field)
				if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
					return false
				}
			}
		case "bool":
			if !matchesBool(body.(map[string]interface{}), source) {
				return false
			}
		default:
			panic("fake cluster does not understand query " + kind)
		}
	}
	return true
}

func matchesBool(clauses map[string]interface{}, source map[string]interface{}) bool {
	if should := queries(clauses["should"]); len(should) > 0 {
		matched := false
		for _, q := range should {
			if matches(q, source) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, q := range queries(clauses["must"]) {
		if !matches(q, source) {
			return false
		}
	}
	for _, q := range queries(clauses["must_not"]) {
		if matches(q, source) {
			return false
		}
	}
	return true
}

func queries(v interface{}) []map[string]interface{} {
	switch q := v.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{q}
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(q))
		for _, e := range q {
			out = append(out, e.(map[string]interface{}))
		}
		return out
	}
	return nil
}

func lookup(source map[string]interface{}, field string) (interface{}, bool) {
	var cur interface{} = source
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
