package reindex

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// TransformFunc rewrites a document before it is written to the destination.
// Returning false drops the document.
type TransformFunc func(doc RawDoc) (RawDoc, bool, error)

// CopyDocuments reads every document of source in batches, passes each one
// through transform when it is not nil and writes the result to dest. It
// returns the number of documents written. The scroll over source is
// released however the copy ends.
func (m *Migrator) CopyDocuments(ctx context.Context, source, dest string, batchSize int, keepAlive string, transform TransformFunc) (int, error) {
	reader := m.NewReader(source, batchSize, keepAlive)
	defer func() {
		// ctx may already be done, the scroll must be released regardless.
		if err := reader.Close(context.Background()); err != nil {
			log.Warnln(logTag, ":", err)
		}
	}()

	written := 0
	for {
		docs, err := reader.Read(ctx)
		if err != nil {
			return written, err
		}
		if len(docs) == 0 {
			break
		}

		if transform != nil {
			docs, err = transformAll(docs, transform)
			if err != nil {
				return written, fmt.Errorf("transforming documents of index %q: %w", source, err)
			}
		}

		if err := m.Write(ctx, dest, docs); err != nil {
			return written, err
		}
		written += len(docs)
		log.Debugln(logTag, ": copied", written, "documents from", source, "to", dest)
	}
	return written, nil
}

func transformAll(docs []RawDoc, transform TransformFunc) ([]RawDoc, error) {
	out := make([]RawDoc, 0, len(docs))
	for _, doc := range docs {
		next, keep, err := transform(doc)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if keep {
			out = append(out, next)
		}
	}
	return out, nil
}
