package migrator

import (
	"context"

	"github.com/appbaseio/migrator/model/reindex"
	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
)

// scheduleChecks starts the periodic migration status check of the
// indices listed in MIGRATION_CHECK_INDICES.
func (mg *migrator) scheduleChecks() error {
	if mg.cfg.CheckInterval == "" || len(mg.cfg.CheckIndices) == 0 {
		return nil
	}
	cronjob := cron.New()
	if err := cronjob.AddFunc(mg.cfg.CheckInterval, mg.checkMigrations); err != nil {
		return err
	}
	cronjob.Start()
	mg.cron = cronjob
	log.Println(logTag, ": checking migrations of", mg.cfg.CheckIndices, "on", mg.cfg.CheckInterval)
	return nil
}

// checkMigrations logs the indices whose documents are not at the latest
// migration versions.
func (mg *migrator) checkMigrations() {
	mg.outdatedIndices(context.Background())
}

// outdatedIndices returns the checked indices that need a migration.
func (mg *migrator) outdatedIndices(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, mg.cfg.Timeout)
	defer cancel()

	var outdated []string
	for _, index := range mg.cfg.CheckIndices {
		if reindex.IsInProgress(index) {
			log.Debugln(logTag, ":", index, "is being migrated, skipping check")
			continue
		}
		upToDate, err := mg.m.MigrationsUpToDate(ctx, index, mg.cfg.Versions, reindex.DefaultRetries)
		if err != nil {
			log.Errorln(logTag, ": checking migrations of", index, "failed:", err)
			continue
		}
		if !upToDate {
			log.Warnln(logTag, ":", index, "has documents older than the latest migration versions")
			outdated = append(outdated, index)
		}
	}
	return outdated
}

// Stop stops the periodic check.
func (mg *migrator) Stop() {
	if mg.cron != nil {
		mg.cron.Stop()
	}
}
