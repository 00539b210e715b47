package reindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/appbaseio/migrator/errors"
	log "github.com/sirupsen/logrus"
)

// settings are applied to every index the migrator creates.
var settings = map[string]interface{}{
	"number_of_shards":     1,
	"auto_expand_replicas": "0-1",
}

// Settings returns a copy of the settings used for indices created by the migrator.
func Settings() map[string]interface{} {
	s := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		s[k] = v
	}
	return s
}

// FetchInfo returns the name, aliases and mappings of index. The index may
// be an alias, in which case the concrete index it points to is described.
// A missing index is not an error: the returned info has Exists=false.
//
// The result is never cached; it must reflect the cluster at call time.
func (m *Migrator) FetchInfo(ctx context.Context, index string) (*IndexInfo, error) {
	indices, found, err := m.client.GetIndex(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("fetching info of index %q: %w", index, err)
	}
	if !found || len(indices) == 0 {
		return &IndexInfo{
			IndexName: index,
			Exists:    false,
			Aliases:   map[string]interface{}{},
			Mappings:  DefaultMappings(),
		}, nil
	}

	// An alias bound to several indices resolves to the first one by name.
	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 1 {
		log.Warnln(logTag, ":", index, "resolves to", len(names), "indices, using", names[0])
	}

	state := indices[names[0]]
	info := &IndexInfo{
		IndexName: names[0],
		Exists:    true,
		Aliases:   state.Aliases,
		Mappings:  Mappings(state.Mappings),
	}
	if info.Aliases == nil {
		info.Aliases = map[string]interface{}{}
	}

	if err := assertIsSupportedIndex(info); err != nil {
		return nil, err
	}
	return info, nil
}

// assertIsSupportedIndex rejects indices whose mappings lack a top level
// "properties" map. Those were written by a legacy layout with several root
// types and must be upgraded by other means before they can be migrated.
func assertIsSupportedIndex(info *IndexInfo) error {
	if _, ok := info.Mappings.Properties(); !ok {
		return errors.NewUnsupportedIndexError(info.IndexName)
	}
	return nil
}

// CreateIndex creates index with the given mappings and the migrator's fixed settings.
func (m *Migrator) CreateIndex(ctx context.Context, index string, mappings Mappings) error {
	body := map[string]interface{}{
		"settings": Settings(),
	}
	if mappings != nil {
		body["mappings"] = mappings
	}
	if err := m.client.CreateIndex(ctx, index, body); err != nil {
		return fmt.Errorf("creating index %q: %w", index, err)
	}
	log.Debugln(logTag, ": created index", index)
	return nil
}

// DeleteIndex deletes index.
func (m *Migrator) DeleteIndex(ctx context.Context, index string) error {
	if err := m.client.DeleteIndex(ctx, index); err != nil {
		return fmt.Errorf("deleting index %q: %w", index, err)
	}
	log.Debugln(logTag, ": deleted index", index)
	return nil
}
