package migrator

import (
	"net/http"

	"github.com/appbaseio/migrator/middleware"
	"github.com/appbaseio/migrator/middleware/auth"
	"github.com/appbaseio/migrator/middleware/order"
	"github.com/appbaseio/migrator/plugins"
)

type chain struct {
	order.Fifo
	creds *auth.Credentials
}

func (c *chain) Wrap(h http.HandlerFunc) http.HandlerFunc {
	return c.Adapt(h, c.list()...)
}

func (c *chain) list() []middleware.Middleware {
	return []middleware.Middleware{
		auth.BasicAuth(c.creds),
	}
}

func (mg *migrator) routes() []plugins.Route {
	middleware := (&chain{creds: mg.creds}).Wrap
	// Static paths come first, they would otherwise be taken for index names.
	routes := []plugins.Route{
		{
			Name:        "List migration jobs",
			Methods:     []string{http.MethodGet},
			Path:        "/_migrator/_jobs",
			HandlerFunc: middleware(mg.listJobs()),
			Description: "Lists the migration jobs started since the server is up.",
		},
		{
			Name:        "Get migration job",
			Methods:     []string{http.MethodGet},
			Path:        "/_migrator/_jobs/{id}",
			HandlerFunc: middleware(mg.getJob()),
			Description: "Returns the status of a migration job.",
		},
		{
			Name:        "Get request schemas",
			Methods:     []string{http.MethodGet},
			Path:        "/_migrator/_schema",
			HandlerFunc: middleware(mg.getSchema()),
			Description: "Returns the JSON schemas of the request bodies.",
		},
		{
			Name:        "Get index info",
			Methods:     []string{http.MethodGet},
			Path:        "/_migrator/{index}",
			HandlerFunc: middleware(mg.getInfo()),
			Description: "Returns the concrete name, aliases and mappings of an index or alias.",
		},
		{
			Name:        "Check migration status",
			Methods:     []string{http.MethodPost},
			Path:        "/_migrator/{index}/_status",
			HandlerFunc: middleware(mg.checkStatus()),
			Description: "Reports whether every document of an index is at its latest migration version.",
		},
		{
			Name:        "Convert to alias",
			Methods:     []string{http.MethodPost},
			Path:        "/_migrator/{alias}/_convert",
			HandlerFunc: middleware(mg.convert()),
			Description: "Replaces a concrete index by an alias of the same name pointing to a copy of it.",
		},
		{
			Name:        "Claim alias",
			Methods:     []string{http.MethodPost},
			Path:        "/_migrator/{alias}/_claim",
			HandlerFunc: middleware(mg.claim()),
			Description: "Binds an alias to a single index, atomically removing it from every other index.",
		},
		{
			Name:        "Migrate",
			Methods:     []string{http.MethodPost},
			Path:        "/_migrator/{alias}/_migrate",
			HandlerFunc: middleware(mg.migrate()),
			Description: "Starts a background migration of the documents behind an alias.",
		},
	}
	return routes
}
