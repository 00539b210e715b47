package reindex

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/appbaseio/migrator/errors"
	log "github.com/sirupsen/logrus"
)

// MigrationsUpToDate reports whether every document of index is at the
// latest version listed in versions. An index that has never been migrated
// (no "migrationVersion" mapping) is never up to date; with no versions to
// check against any migrated index is.
//
// When the cluster answers with service unavailable the check is retried up
// to retries times, retryWait apart. Any other error is returned at once.
// The result is computed on every call and must not be cached by callers,
// since it decides whether a migration has completed.
func (m *Migrator) MigrationsUpToDate(ctx context.Context, index string, versions MigrationVersion, retries int) (bool, error) {
	for {
		upToDate, err := m.migrationsUpToDate(ctx, index, versions)
		if err == nil {
			if upToDate {
				statusChecks.WithLabelValues("up_to_date").Inc()
			} else {
				statusChecks.WithLabelValues("outdated").Inc()
			}
			return upToDate, nil
		}
		if errors.StatusCode(err) != http.StatusServiceUnavailable || retries <= 0 {
			statusChecks.WithLabelValues("error").Inc()
			return false, err
		}

		retries--
		statusRetries.Inc()
		log.Warnln(logTag, ": cluster unavailable while checking", index, ", retries left:", retries)
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(m.retryWait):
		}
	}
}

func (m *Migrator) migrationsUpToDate(ctx context.Context, index string, versions MigrationVersion) (bool, error) {
	info, err := m.FetchInfo(ctx, index)
	if err != nil {
		return false, err
	}

	if !info.Mappings.HasProperty("migrationVersion") {
		return false, nil
	}

	if len(versions) == 0 {
		return true, nil
	}

	res, err := m.client.Count(ctx, index, outdatedDocumentsQuery(versions))
	if err != nil {
		return false, err
	}
	if err := assertAllShardsOk("count", res.Shards); err != nil {
		return false, err
	}
	return res.Count == 0, nil
}

// outdatedDocumentsQuery matches the documents that have a type's field but
// are not at that type's latest migration version.
func outdatedDocumentsQuery(versions MigrationVersion) map[string]interface{} {
	types := make([]string, 0, len(versions))
	for t := range versions {
		types = append(types, t)
	}
	sort.Strings(types)

	should := make([]interface{}, 0, len(types))
	for _, t := range types {
		should = append(should, map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"exists": map[string]interface{}{"field": t},
					},
					map[string]interface{}{
						"bool": map[string]interface{}{
							"must_not": map[string]interface{}{
								"term": map[string]interface{}{
									"migrationVersion." + t: versions[t],
								},
							},
						},
					},
				},
			},
		})
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should": should,
		},
	}
}
