package migrator

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/appbaseio/migrator/internal/es7"
	"github.com/appbaseio/migrator/middleware/auth"
	"github.com/appbaseio/migrator/model/reindex"
	"github.com/appbaseio/migrator/plugins"
	"github.com/appbaseio/migrator/util"
	"github.com/gorilla/mux"
	"github.com/olivere/elastic/v7"
)

// ServerSetup describes one canned answer of the test cluster. A Body of
// "*" matches any request body and a Path ending in "*" matches any path
// with that prefix. When Hold is set the answer waits until it is closed.
type ServerSetup struct {
	Method, Path, Body, Response string
	HTTPStatus                   int
	Hold                         <-chan struct{}
}

func matchPath(pattern, path string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == path
}

func buildTestServer(t *testing.T, setups []*ServerSetup) *httptest.Server {
	handlerFunc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestBytes, _ := ioutil.ReadAll(r.Body)
		requestBody := string(requestBytes)

		for _, setup := range setups {
			if r.Method != setup.Method || !matchPath(setup.Path, r.URL.EscapedPath()) {
				continue
			}
			if setup.Body != "*" && requestBody != setup.Body {
				continue
			}
			if setup.Hold != nil {
				<-setup.Hold
			}
			w.Header().Set("Content-Type", "application/json")
			if setup.HTTPStatus == 0 {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(setup.HTTPStatus)
			}
			if _, err := w.Write([]byte(setup.Response)); err != nil {
				t.Errorf("Unable to write test server response: %v", err)
			}
			return
		}

		t.Errorf("No requests matched setup. Got method %s, Path %s, body %s", r.Method, r.URL.EscapedPath(), requestBody)
		w.WriteHeader(http.StatusNotFound)
	})

	return httptest.NewServer(handlerFunc)
}

func testConfig() *util.Config {
	return &util.Config{
		BatchSize:      10,
		ScrollDuration: reindex.DefaultScrollDuration,
		Timeout:        time.Minute,
		Versions:       reindex.MigrationVersion{},
	}
}

// newTestMigrator returns a migrator talking to a test cluster answering
// with setups, and the router serving its routes.
func newTestMigrator(t *testing.T, setups []*ServerSetup, creds *auth.Credentials) (*migrator, *mux.Router, func()) {
	ts := buildTestServer(t, setups)
	client, err := es7.New(ts.URL, elastic.SetHealthcheck(false))
	if err != nil {
		ts.Close()
		t.Fatalf("Unable to create test client: %v", err)
	}

	mg := &migrator{}
	mg.setUp(client, testConfig(), creds, reindex.WithPollInterval(time.Millisecond), reindex.WithRetryWait(time.Millisecond))
	router := mux.NewRouter().StrictSlash(true)
	if err := plugins.LoadRoutes(router, mg.Routes()); err != nil {
		ts.Close()
		t.Fatalf("Unable to load routes: %v", err)
	}
	return mg, router, ts.Close
}

func serve(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
