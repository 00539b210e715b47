package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appbaseio/migrator/model/reindex"
	"github.com/appbaseio/migrator/util"
)

// params are the flags of one invocation, with defaults applied.
type params struct {
	op        string
	index     string
	alias     string
	dest      string
	batchSize int
	scroll    string
	script    string
	versions  reindex.MigrationVersion
	mappings  reindex.Mappings
	retries   int
	timeout   time.Duration
}

func parseParams(cfg *util.Config) (*params, error) {
	p := &params{
		op:        op,
		index:     index,
		alias:     alias,
		dest:      dest,
		batchSize: batchSize,
		scroll:    scroll,
		script:    script,
		versions:  cfg.Versions,
		retries:   retries,
		timeout:   timeout,
	}
	if p.batchSize <= 0 {
		p.batchSize = cfg.BatchSize
	}
	if p.scroll == "" {
		p.scroll = cfg.ScrollDuration
	}
	if p.timeout <= 0 {
		p.timeout = cfg.Timeout
	}
	if versions != "" {
		p.versions = reindex.MigrationVersion{}
		if err := json.Unmarshal([]byte(versions), &p.versions); err != nil {
			return nil, fmt.Errorf("-versions must be a JSON object of strings: %w", err)
		}
	}
	if mappings != "" {
		if err := json.Unmarshal([]byte(mappings), &p.mappings); err != nil {
			return nil, fmt.Errorf("-mappings must be a JSON object: %w", err)
		}
	}
	return p, nil
}

// execute runs the operation named by p.op and returns what to print.
func execute(ctx context.Context, m *reindex.Migrator, p *params) (interface{}, error) {
	switch p.op {
	case "info":
		if p.index == "" {
			return nil, fmt.Errorf("info requires -index")
		}
		return m.FetchInfo(ctx, p.index)

	case "status":
		if p.index == "" {
			return nil, fmt.Errorf("status requires -index")
		}
		upToDate, err := m.MigrationsUpToDate(ctx, p.index, p.versions, p.retries)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"index": p.index, "up_to_date": upToDate}, nil

	case "claim":
		if p.index == "" || p.alias == "" {
			return nil, fmt.Errorf("claim requires -index and -alias")
		}
		if err := m.ClaimAlias(ctx, p.index, p.alias); err != nil {
			return nil, err
		}
		return map[string]interface{}{"alias": p.alias, "index": p.index}, nil

	case "convert":
		if p.alias == "" {
			return nil, fmt.Errorf("convert requires -alias")
		}
		target := p.dest
		if target == "" {
			name, err := reindex.ReindexedName(p.alias)
			if err != nil {
				return nil, err
			}
			target = name
		}
		mappings := p.mappings
		if mappings == nil {
			current, err := m.FetchInfo(ctx, p.alias)
			if err != nil {
				return nil, err
			}
			if !current.Exists {
				return nil, fmt.Errorf("index %s does not exist", p.alias)
			}
			mappings = current.Mappings
		}
		info := &reindex.IndexInfo{IndexName: target, Mappings: mappings}
		if err := m.ConvertToAlias(ctx, info, p.alias, p.batchSize, p.script); err != nil {
			return nil, err
		}
		return map[string]interface{}{"alias": p.alias, "index": target}, nil

	case "migrate":
		if p.alias == "" {
			return nil, fmt.Errorf("migrate requires -alias")
		}
		return m.Migrate(ctx, reindex.Plan{
			Alias:     p.alias,
			Mappings:  p.mappings,
			Versions:  p.versions,
			BatchSize: p.batchSize,
			Script:    p.script,
		})

	case "copy":
		if p.index == "" || p.dest == "" {
			return nil, fmt.Errorf("copy requires -index and -dest")
		}
		copied, err := m.CopyDocuments(ctx, p.index, p.dest, p.batchSize, p.scroll, nil)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"source": p.index, "dest": p.dest, "copied": copied}, nil
	}
	return nil, fmt.Errorf("unknown operation %q", p.op)
}
