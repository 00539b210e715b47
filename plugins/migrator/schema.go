package migrator

import (
	"net/http"

	"github.com/appbaseio/migrator/util"
	"github.com/invopop/jsonschema"
)

// schemas describes the request body of every route accepting one.
func schemas() map[string]*jsonschema.Schema {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	return map[string]*jsonschema.Schema{
		"_status":  reflector.Reflect(&statusRequest{}),
		"_convert": reflector.Reflect(&convertRequest{}),
		"_claim":   reflector.Reflect(&claimRequest{}),
		"_migrate": reflector.Reflect(&migrateRequest{}),
		"backend":  util.ElasticSearch.JSONSchema(),
	}
}

func (mg *migrator) getSchema() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		util.WriteBackJSON(w, schemas(), http.StatusOK)
	}
}
