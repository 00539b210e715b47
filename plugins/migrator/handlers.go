package migrator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/appbaseio/migrator/errors"
	"github.com/appbaseio/migrator/model/reindex"
	"github.com/appbaseio/migrator/util"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type statusRequest struct {
	MigrationVersion reindex.MigrationVersion `json:"migration_version,omitempty" jsonschema:"description=Latest migration version per document type"`
	Retries          *int                     `json:"retries,omitempty" jsonschema:"minimum=0,description=Retries when the cluster is unavailable"`
}

type convertRequest struct {
	DestIndex string           `json:"dest_index,omitempty" jsonschema:"description=Name of the new physical index"`
	Mappings  reindex.Mappings `json:"mappings,omitempty" jsonschema:"description=Mappings of the new index, defaults to the current ones"`
	BatchSize int              `json:"batch_size,omitempty" jsonschema:"minimum=1"`
	Script    string           `json:"script,omitempty" jsonschema:"description=Painless script applied to every document"`
}

type claimRequest struct {
	Index string `json:"index" jsonschema:"required,description=Index the alias is bound to"`
}

type migrateRequest struct {
	Mappings         reindex.Mappings         `json:"mappings,omitempty"`
	MigrationVersion reindex.MigrationVersion `json:"migration_version,omitempty"`
	BatchSize        int                      `json:"batch_size,omitempty" jsonschema:"minimum=1"`
	Script           string                   `json:"script,omitempty"`
}

// readBody decodes the request body into v. An empty body leaves v untouched.
func readBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	reqBody, err := ioutil.ReadAll(r.Body)
	if err != nil {
		log.Errorln(logTag, ":", err)
		util.WriteBackError(w, "Can't read request body", http.StatusBadRequest)
		return false
	}
	defer r.Body.Close()

	if len(reqBody) == 0 {
		return true
	}
	if err := json.Unmarshal(reqBody, v); err != nil {
		log.Debugln(logTag, ":", err)
		util.WriteBackError(w, "Can't parse request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func routeVar(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value, ok := mux.Vars(r)[name]
	if !ok || value == "" {
		util.WriteBackError(w, fmt.Sprintf("Route inconsistency, expecting var {%s}", name), http.StatusInternalServerError)
		return "", false
	}
	return value, true
}

// writeError answers with the status matching err.
func writeError(w http.ResponseWriter, err error) {
	var inProgress *errors.MigrationInProgressError
	var unsupported *errors.UnsupportedIndexError
	code := http.StatusInternalServerError
	switch {
	case stderrors.As(err, &inProgress):
		code = http.StatusConflict
	case stderrors.As(err, &unsupported):
		code = http.StatusUnprocessableEntity
	case stderrors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case errors.StatusCode(err) >= http.StatusBadRequest:
		code = errors.StatusCode(err)
	}
	if code >= http.StatusInternalServerError {
		log.Errorln(logTag, ":", err)
	}
	util.WriteBackError(w, err.Error(), code)
}

func (mg *migrator) batchSize(requested int) int {
	if requested > 0 {
		return requested
	}
	return mg.cfg.BatchSize
}

func (mg *migrator) versions(requested reindex.MigrationVersion) reindex.MigrationVersion {
	if requested != nil {
		return requested
	}
	return mg.cfg.Versions
}

func (mg *migrator) getInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := routeVar(w, r, "index")
		if !ok {
			return
		}
		info, err := mg.m.FetchInfo(r.Context(), index)
		if err != nil {
			writeError(w, err)
			return
		}
		util.WriteBackJSON(w, info, http.StatusOK)
	}
}

func (mg *migrator) checkStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := routeVar(w, r, "index")
		if !ok {
			return
		}
		var body statusRequest
		if !readBody(w, r, &body) {
			return
		}
		retries := reindex.DefaultRetries
		if body.Retries != nil {
			retries = *body.Retries
		}

		upToDate, err := mg.m.MigrationsUpToDate(r.Context(), index, mg.versions(body.MigrationVersion), retries)
		if err != nil {
			writeError(w, err)
			return
		}
		util.WriteBackJSON(w, map[string]interface{}{
			"index":      index,
			"up_to_date": upToDate,
		}, http.StatusOK)
	}
}

func (mg *migrator) convert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alias, ok := routeVar(w, r, "alias")
		if !ok {
			return
		}
		var body convertRequest
		if !readBody(w, r, &body) {
			return
		}
		if reindex.IsInProgress(alias) {
			writeError(w, errors.NewMigrationInProgressError(alias, "a running job"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), mg.cfg.Timeout)
		defer cancel()

		dest := body.DestIndex
		if dest == "" {
			name, err := reindex.ReindexedName(alias)
			if err != nil {
				util.WriteBackError(w, err.Error(), http.StatusBadRequest)
				return
			}
			dest = name
		}
		mappings := body.Mappings
		if mappings == nil {
			current, err := mg.m.FetchInfo(ctx, alias)
			if err != nil {
				writeError(w, err)
				return
			}
			if !current.Exists {
				util.WriteBackError(w, fmt.Sprintf("index %s does not exist", alias), http.StatusNotFound)
				return
			}
			mappings = current.Mappings
		}

		info := &reindex.IndexInfo{IndexName: dest, Mappings: mappings}
		if err := mg.m.ConvertToAlias(ctx, info, alias, mg.batchSize(body.BatchSize), body.Script); err != nil {
			writeError(w, err)
			return
		}
		util.WriteBackJSON(w, map[string]interface{}{
			"alias": alias,
			"index": dest,
		}, http.StatusOK)
	}
}

func (mg *migrator) claim() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alias, ok := routeVar(w, r, "alias")
		if !ok {
			return
		}
		var body claimRequest
		if !readBody(w, r, &body) {
			return
		}
		if body.Index == "" {
			util.WriteBackError(w, "index is required", http.StatusBadRequest)
			return
		}
		if reindex.IsInProgress(alias) {
			writeError(w, errors.NewMigrationInProgressError(alias, "a running job"))
			return
		}

		if err := mg.m.ClaimAlias(r.Context(), body.Index, alias); err != nil {
			writeError(w, err)
			return
		}
		util.WriteBackMessage(w, fmt.Sprintf("alias %s now points to %s", alias, body.Index), http.StatusOK)
	}
}

func (mg *migrator) migrate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alias, ok := routeVar(w, r, "alias")
		if !ok {
			return
		}
		var body migrateRequest
		if !readBody(w, r, &body) {
			return
		}
		if reindex.IsInProgress(alias) {
			writeError(w, errors.NewMigrationInProgressError(alias, "a running job"))
			return
		}

		plan := reindex.Plan{
			Alias:     alias,
			Mappings:  body.Mappings,
			Versions:  mg.versions(body.MigrationVersion),
			BatchSize: mg.batchSize(body.BatchSize),
			Script:    body.Script,
		}
		job := mg.jobs.start(alias, mg.cfg.Timeout, func(ctx context.Context, id string) (*reindex.Result, error) {
			plan.ID = id
			return mg.m.Migrate(ctx, plan)
		})
		util.WriteBackJSON(w, map[string]interface{}{"id": job.ID}, http.StatusAccepted)
	}
}

func (mg *migrator) listJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		util.WriteBackJSON(w, mg.jobs.list(), http.StatusOK)
	}
}

func (mg *migrator) getJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := routeVar(w, r, "id")
		if !ok {
			return
		}
		job, ok := mg.jobs.get(id)
		if !ok {
			util.WriteBackError(w, fmt.Sprintf("job %s not found", id), http.StatusNotFound)
			return
		}
		util.WriteBackJSON(w, job, http.StatusOK)
	}
}
