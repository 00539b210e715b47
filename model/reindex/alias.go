package reindex

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// ClaimAlias points alias at index and at index only. Every index the alias
// currently resolves to is unbound in the same atomic request that binds
// index, after the extra actions, so readers never see the alias resolve to
// nothing or to a stale set. index is refreshed afterwards so that
// everything written to it is visible through the alias.
func (m *Migrator) ClaimAlias(ctx context.Context, index, alias string, extra ...AliasAction) error {
	bound, err := m.client.GetAlias(ctx, alias)
	if err != nil {
		return fmt.Errorf("getting indices of alias %q: %w", alias, err)
	}

	current := append([]string(nil), bound...)
	sort.Strings(current)

	actions := make([]AliasAction, 0, len(extra)+len(current)+1)
	actions = append(actions, extra...)
	for _, name := range current {
		actions = append(actions, RemoveAlias(name, alias))
	}
	actions = append(actions, AddAlias(index, alias))

	if err := m.client.UpdateAliases(ctx, actions); err != nil {
		return fmt.Errorf("pointing alias %q at index %q: %w", alias, index, err)
	}
	aliasCutovers.Inc()
	log.Println(logTag, ": alias", alias, "now points at", index, "(previously", current, ")")

	if err := m.client.Refresh(ctx, index); err != nil {
		return fmt.Errorf("refreshing index %q: %w", index, err)
	}
	return nil
}
