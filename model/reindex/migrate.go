package reindex

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Plan describes the migration of the documents behind an alias.
type Plan struct {
	// ID names the migration in the errors of the migrations it blocks. It
	// defaults to the alias. Two plans sharing an ID still exclude each other.
	ID string
	// Alias is the stable name consumers read and write through.
	Alias string
	// Mappings of the new index. The current mappings are kept when nil. The
	// new index must map "migrationVersion".
	Mappings Mappings
	// Versions are the latest migration versions per document type.
	Versions MigrationVersion
	// BatchSize is the number of documents per reindex read slice.
	BatchSize int
	// Script is an optional painless script applied to every document.
	Script string
}

// Action is what a migration did to bring an alias up to date.
type Action string

const (
	// ActionNone means every document already was at the latest version.
	ActionNone Action = "none"
	// ActionCreated means the alias did not exist and a new empty index was created for it.
	ActionCreated Action = "created"
	// ActionConverted means a concrete index was replaced by an alias of the same name.
	ActionConverted Action = "converted"
	// ActionReindexed means the alias was moved to a new index holding a copy of its documents.
	ActionReindexed Action = "reindexed"
)

// Result reports the outcome of a successful migration.
type Result struct {
	Alias    string        `json:"alias"`
	Action   Action        `json:"action"`
	Previous string        `json:"previous_index,omitempty"`
	Index    string        `json:"index,omitempty"`
	Took     time.Duration `json:"took"`
}

// Migrate brings the documents behind plan.Alias to the latest versions of
// plan.Versions. Nothing is done when they already are. Otherwise a new
// index named after the current one is created with plan.Mappings, the
// documents are reindexed into it and the alias is moved over.
//
// Migrate fails with a *errors.MigrationInProgressError if the alias or any
// of the indices involved is already being migrated. A plan whose new index
// would not map "migrationVersion" is refused before anything is written:
// such an alias is never up to date. A failure part way leaves the new index
// in place; nothing is rolled back.
func (m *Migrator) Migrate(ctx context.Context, plan Plan) (*Result, error) {
	if plan.Alias == "" {
		return nil, fmt.Errorf("migration plan has no alias")
	}
	name := plan.ID
	if name == "" {
		name = plan.Alias
	}
	owner := newOwner(name)
	if err := acquire(owner, plan.Alias); err != nil {
		return nil, err
	}
	defer release(owner)

	start := time.Now()
	result := &Result{Alias: plan.Alias, Action: ActionNone}

	upToDate, err := m.MigrationsUpToDate(ctx, plan.Alias, plan.Versions, DefaultRetries)
	if err != nil {
		return nil, err
	}
	if upToDate {
		log.Println(logTag, ":", plan.Alias, "is up to date, nothing to migrate")
		result.Took = time.Since(start)
		return result, nil
	}

	info, err := m.FetchInfo(ctx, plan.Alias)
	if err != nil {
		return nil, err
	}
	if mappings := targetMappings(plan, info); !mappings.HasProperty("migrationVersion") {
		return nil, fmt.Errorf("cannot migrate %s: the mappings of the new index have no migrationVersion field", plan.Alias)
	}

	switch {
	case !info.Exists:
		err = m.createFor(ctx, owner, plan, result)
	case info.IndexName == plan.Alias:
		err = m.convertFor(ctx, owner, plan, info, result)
	default:
		err = m.reindexFor(ctx, owner, plan, info, result)
	}
	if err != nil {
		return nil, err
	}

	result.Took = time.Since(start)
	log.Println(logTag, ":", plan.Alias, "migrated,", result.Action, result.Previous, "->", result.Index, "in", result.Took)
	return result, nil
}

// createFor creates the first physical index of an alias that does not exist yet.
func (m *Migrator) createFor(ctx context.Context, owner string, plan Plan, result *Result) error {
	dest, err := ReindexedName(plan.Alias)
	if err != nil {
		return err
	}
	if err := acquire(owner, dest); err != nil {
		return err
	}

	if err := m.CreateIndex(ctx, dest, targetMappings(plan, nil)); err != nil {
		return err
	}
	if err := m.ClaimAlias(ctx, dest, plan.Alias); err != nil {
		return err
	}

	result.Action = ActionCreated
	result.Index = dest
	return nil
}

// convertFor turns the concrete index plan.Alias into an alias.
func (m *Migrator) convertFor(ctx context.Context, owner string, plan Plan, info *IndexInfo, result *Result) error {
	dest, err := ReindexedName(plan.Alias)
	if err != nil {
		return err
	}
	if err := acquire(owner, dest); err != nil {
		return err
	}

	target := &IndexInfo{IndexName: dest, Mappings: targetMappings(plan, info)}
	if err := m.convertToAlias(ctx, target, plan.Alias, plan.BatchSize, plan.Script); err != nil {
		return err
	}

	result.Action = ActionConverted
	result.Previous = plan.Alias
	result.Index = dest
	return nil
}

// reindexFor moves an existing alias to a successor of the index it points to.
func (m *Migrator) reindexFor(ctx context.Context, owner string, plan Plan, info *IndexInfo, result *Result) error {
	dest, err := ReindexedName(info.IndexName)
	if err != nil {
		return err
	}
	if err := acquire(owner, info.IndexName, dest); err != nil {
		return err
	}

	if err := m.CreateIndex(ctx, dest, targetMappings(plan, info)); err != nil {
		return err
	}
	if err := m.reindex(ctx, plan.Alias, dest, plan.BatchSize, plan.Script); err != nil {
		return err
	}
	if err := m.ClaimAlias(ctx, dest, plan.Alias); err != nil {
		return err
	}

	result.Action = ActionReindexed
	result.Previous = info.IndexName
	result.Index = dest
	return nil
}

// targetMappings returns the mappings of the index a plan creates: the
// plan's own, else those of the current index, else a strict mapping
// holding only the migration versions.
func targetMappings(plan Plan, info *IndexInfo) Mappings {
	switch {
	case plan.Mappings != nil:
		return plan.Mappings
	case info != nil && info.Exists:
		return info.Mappings
	default:
		return Mappings{
			"dynamic": "strict",
			"properties": map[string]interface{}{
				"migrationVersion": map[string]interface{}{"dynamic": "true", "type": "object"},
			},
		}
	}
}
