// Package migrator exposes the index migrations over HTTP.
package migrator

import (
	"sync"

	"github.com/appbaseio/migrator/middleware/auth"
	"github.com/appbaseio/migrator/model/reindex"
	"github.com/appbaseio/migrator/plugins"
	"github.com/appbaseio/migrator/util"
	"github.com/robfig/cron"
)

const logTag = "[migrator]"

var (
	singleton *migrator
	once      sync.Once
)

type migrator struct {
	m     *reindex.Migrator
	cfg   *util.Config
	jobs  *jobs
	creds *auth.Credentials
	cron  *cron.Cron
}

// Use only this function to fetch the instance of the migrator from within
// this package to avoid creating stateless duplicates of the plugin.
func Instance() *migrator {
	once.Do(func() { singleton = &migrator{} })
	return singleton
}

var _ plugins.Plugin = (*migrator)(nil)

func (mg *migrator) Name() string {
	return logTag
}

// InitFunc connects to the cluster configured in the environment and
// schedules the periodic migration check, if any.
func (mg *migrator) InitFunc() error {
	client, err := util.NewClient()
	if err != nil {
		return err
	}
	cfg, err := util.LoadConfig()
	if err != nil {
		return err
	}
	mg.setUp(client, cfg, auth.FromEnv())
	return mg.scheduleChecks()
}

func (mg *migrator) setUp(client reindex.Client, cfg *util.Config, creds *auth.Credentials, opts ...reindex.Option) {
	mg.m = reindex.New(client, opts...)
	mg.cfg = cfg
	mg.creds = creds
	mg.jobs = newJobs()
}

func (mg *migrator) Routes() []plugins.Route {
	return mg.routes()
}

func init() {
	plugins.RegisterPlugin(Instance())
}
