package reindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appbaseio/migrator/errors"
	log "github.com/sirupsen/logrus"
)

// Write indexes docs into index with a single bulk request, keeping their
// ids and order. If any document fails the whole call fails with a
// *errors.BulkWriteError for the first failed item; the other documents of
// the batch may have been written.
func (m *Migrator) Write(ctx context.Context, index string, docs []RawDoc) error {
	if len(docs) == 0 {
		return nil
	}

	ops := make([]BulkOperation, 0, len(docs))
	for _, doc := range docs {
		ops = append(ops, BulkOperation{
			Index:  index,
			ID:     doc.ID,
			Source: doc.Source,
		})
	}

	res, err := m.client.Bulk(ctx, ops)
	if err != nil {
		return fmt.Errorf("writing %d documents to index %q: %w", len(docs), index, err)
	}

	for _, item := range res.Items {
		if item.Error == nil || item.Error.Reason == "" {
			continue
		}
		raw := item.Raw
		if raw == nil {
			raw, _ = json.Marshal(item)
		}
		log.Errorln(logTag, ": bulk write to", index, "failed for document", item.ID, ":", item.Error.Reason)
		return errors.NewBulkWriteError(index, item.Error.Reason, raw)
	}

	documentsWritten.WithLabelValues(index).Add(float64(len(docs)))
	return nil
}
