package reindex

import (
	"context"
)

// ConvertToAlias turns alias, which currently is a concrete index, into an
// alias of the new index described by info. The new index is created with
// info's mappings, alias is reindexed into it, and then in one atomic alias
// update the old concrete index is deleted and alias is bound to the new one.
//
// Both names are reserved for the whole conversion: ConvertToAlias fails
// with a *errors.MigrationInProgressError if either one already is part of
// a migration. A failure at any step stops the conversion and leaves
// whatever was done so far in place; nothing is rolled back.
func (m *Migrator) ConvertToAlias(ctx context.Context, info *IndexInfo, alias string, batchSize int, script string) error {
	owner := newOwner("convert " + alias)
	if err := acquire(owner, alias, info.IndexName); err != nil {
		return err
	}
	defer release(owner)

	return m.convertToAlias(ctx, info, alias, batchSize, script)
}

// convertToAlias runs a conversion whose names the caller has reserved.
func (m *Migrator) convertToAlias(ctx context.Context, info *IndexInfo, alias string, batchSize int, script string) error {
	if err := m.CreateIndex(ctx, info.IndexName, info.Mappings); err != nil {
		return err
	}

	if err := m.reindex(ctx, alias, info.IndexName, batchSize, script); err != nil {
		return err
	}

	return m.ClaimAlias(ctx, info.IndexName, alias, RemoveIndex(alias))
}
