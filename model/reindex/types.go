package reindex

// IndexInfo describes an index as seen by the migrator. When Exists is
// false Mappings is the empty strict mapping and Aliases is empty.
type IndexInfo struct {
	IndexName string                 `json:"index_name"`
	Exists    bool                   `json:"exists"`
	Aliases   map[string]interface{} `json:"aliases"`
	Mappings  Mappings               `json:"mappings"`
}

// IsAliased reports whether name is one of the aliases of the index.
func (i *IndexInfo) IsAliased(name string) bool {
	_, ok := i.Aliases[name]
	return ok
}

// Mappings is an index mapping. Only "properties" and "dynamic" are
// interpreted, everything else is carried over untouched when an index is
// recreated.
type Mappings map[string]interface{}

// DefaultMappings returns the mappings reported for an index that does not exist.
func DefaultMappings() Mappings {
	return Mappings{
		"dynamic":    "strict",
		"properties": map[string]interface{}{},
	}
}

// Properties returns the top level field mappings and whether the mapping
// has a "properties" map at all.
func (m Mappings) Properties() (map[string]interface{}, bool) {
	raw, ok := m["properties"]
	if !ok {
		return nil, false
	}
	properties, ok := raw.(map[string]interface{})
	return properties, ok
}

// HasProperty reports whether field is mapped at the top level.
func (m Mappings) HasProperty(field string) bool {
	properties, ok := m.Properties()
	if !ok {
		return false
	}
	_, ok = properties[field]
	return ok
}

// RawDoc is a document as stored in the index. Its source is opaque to the migrator.
type RawDoc struct {
	ID     string                 `json:"_id"`
	Source map[string]interface{} `json:"_source"`
}

// MigrationVersion maps a document type to the latest schema version known for it.
type MigrationVersion map[string]string

// AliasAction is one entry of an atomic update-aliases request. Exactly one
// of the fields is set.
type AliasAction struct {
	Add         *AliasActionSpec `json:"add,omitempty"`
	Remove      *AliasActionSpec `json:"remove,omitempty"`
	RemoveIndex *AliasActionSpec `json:"remove_index,omitempty"`
}

// AliasActionSpec names the index, and alias if any, an action applies to.
type AliasActionSpec struct {
	Index string `json:"index"`
	Alias string `json:"alias,omitempty"`
}

// AddAlias binds alias to index.
func AddAlias(index, alias string) AliasAction {
	return AliasAction{Add: &AliasActionSpec{Index: index, Alias: alias}}
}

// RemoveAlias unbinds alias from index.
func RemoveAlias(index, alias string) AliasAction {
	return AliasAction{Remove: &AliasActionSpec{Index: index, Alias: alias}}
}

// RemoveIndex deletes the concrete index as part of the alias update.
func RemoveIndex(index string) AliasAction {
	return AliasAction{RemoveIndex: &AliasActionSpec{Index: index}}
}
