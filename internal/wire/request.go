package wire

import (
	"bytes"
	"encoding/json"

	"github.com/appbaseio/migrator/model/reindex"
)

// BulkBody builds the NDJSON body of a bulk request: one index action
// header followed by the document source per operation, in order.
func BulkBody(ops []reindex.BulkOperation) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, op := range ops {
		header := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": op.Index,
				"_id":    op.ID,
			},
		}
		if err := enc.Encode(header); err != nil {
			return nil, err
		}
		source := op.Source
		if source == nil {
			source = map[string]interface{}{}
		}
		if err := enc.Encode(source); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ReindexBody builds the body of a reindex request. The script, when
// given, is run as painless.
func ReindexBody(req reindex.ReindexRequest) map[string]interface{} {
	source := map[string]interface{}{"index": req.Source}
	if req.Size > 0 {
		source["size"] = req.Size
	}
	body := map[string]interface{}{
		"source": source,
		"dest":   map[string]interface{}{"index": req.Dest},
	}
	if req.Script != "" {
		body["script"] = map[string]interface{}{
			"source": req.Script,
			"lang":   "painless",
		}
	}
	return body
}

// SearchBody builds the body of the search opening a scroll.
func SearchBody(size int) map[string]interface{} {
	return map[string]interface{}{"size": size}
}

// CountBody wraps query into the body of a count request.
func CountBody(query map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"query": query}
}

// AliasesBody wraps actions into the body of an update-aliases request.
func AliasesBody(actions []reindex.AliasAction) map[string]interface{} {
	return map[string]interface{}{"actions": actions}
}
