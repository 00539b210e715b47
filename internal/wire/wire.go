// Package wire encodes requests for, and decodes responses of, the
// Elasticsearch compatible REST API. It is shared by every client so that
// all of them read the engine's answers the same way.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/appbaseio/migrator/model/reindex"
	"github.com/buger/jsonparser"
)

// Indices decodes a get-index response keyed by concrete index name.
func Indices(body []byte) (map[string]reindex.IndexState, error) {
	var indices map[string]reindex.IndexState
	if err := json.Unmarshal(body, &indices); err != nil {
		return nil, fmt.Errorf("decoding get index response: %w", err)
	}
	return indices, nil
}

// TaskID extracts the task id of an asynchronous request.
func TaskID(body []byte) (string, error) {
	value, dataType, _, err := jsonparser.Get(body, "task")
	if err != nil {
		return "", fmt.Errorf("response carries no task id: %w", err)
	}
	// Task ids are strings like "node:42", be lenient with numbers.
	if dataType != jsonparser.String && dataType != jsonparser.Number {
		return "", fmt.Errorf("unexpected task id %s", value)
	}
	return string(value), nil
}

// TaskStatus decodes a get-task response.
func TaskStatus(body []byte) (*reindex.TaskStatus, error) {
	status := &reindex.TaskStatus{Raw: append(json.RawMessage(nil), body...)}

	completed, err := jsonparser.GetBoolean(body, "completed")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("decoding task status: %w", err)
	}
	status.Completed = completed

	if value, dataType, _, err := jsonparser.Get(body, "error"); err == nil && dataType == jsonparser.Object {
		status.Error = errorDetails(value)
	}

	_, err = jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if dataType != jsonparser.Object {
			return
		}
		failure := reindex.ReindexFailure{}
		failure.Index, _ = jsonparser.GetString(value, "index")
		failure.ID, _ = jsonparser.GetString(value, "id")
		if cause, _, _, err := jsonparser.Get(value, "cause"); err == nil {
			failure.Cause = *errorDetails(cause)
		}
		status.Failures = append(status.Failures, failure)
	}, "response", "failures")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("decoding task failures: %w", err)
	}

	status.Shards = shards(body, "response", "_shards")
	return status, nil
}

// Search decodes a search or scroll response.
func Search(body []byte) (*reindex.SearchResponse, error) {
	res := &reindex.SearchResponse{
		Shards: shards(body, "_shards"),
	}
	res.ScrollID, _ = jsonparser.GetString(body, "_scroll_id")

	var decodeErr error
	_, err := jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if decodeErr != nil {
			return
		}
		var doc reindex.RawDoc
		if decodeErr = json.Unmarshal(value, &doc); decodeErr == nil {
			res.Hits = append(res.Hits, doc)
		}
	}, "hits", "hits")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("decoding search hits: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding search hit: %w", decodeErr)
	}
	return res, nil
}

// ErrorReason extracts "type: reason" from an error response body, falling
// back to the body itself.
func ErrorReason(body []byte) string {
	if e, dataType, _, err := jsonparser.Get(body, "error"); err == nil {
		if dataType == jsonparser.Object {
			details := errorDetails(e)
			return details.Type + ": " + details.Reason
		}
		if dataType == jsonparser.String {
			s, _ := jsonparser.ParseString(e)
			return s
		}
	}
	return string(bytes.TrimSpace(body))
}

func errorDetails(value []byte) *reindex.ErrorDetails {
	details := &reindex.ErrorDetails{}
	details.Type, _ = jsonparser.GetString(value, "type")
	details.Reason, _ = jsonparser.GetString(value, "reason")
	return details
}

func shards(body []byte, keys ...string) *reindex.ShardsInfo {
	value, dataType, _, err := jsonparser.Get(body, keys...)
	if err != nil || dataType != jsonparser.Object {
		return nil
	}
	info := &reindex.ShardsInfo{}
	if total, err := jsonparser.GetInt(value, "total"); err == nil {
		info.Total = int(total)
	}
	if successful, err := jsonparser.GetInt(value, "successful"); err == nil {
		info.Successful = int(successful)
	}
	if failed, err := jsonparser.GetInt(value, "failed"); err == nil {
		info.Failed = int(failed)
	}
	return info
}
