package es7

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olivere/elastic/v7"
)

func compareErrs(expectedErr string, actual error) bool {
	if actual == nil {
		return expectedErr == ""
	}
	return expectedErr == actual.Error()
}

// ServerSetup describes one canned answer of the test server. A Body of
// "*" matches any request body and a Path ending in "*" matches any path
// with that prefix.
type ServerSetup struct {
	Method, Path, Body, Response string
	HTTPStatus                   int
}

func matchPath(pattern, path string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == path
}

// This function is a modified version of: https://github.com/github/vulcanizer/blob/master/es_test.go
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

func newTestClient(t *testing.T, url string) *Client {
	client, err := New(url, elastic.SetHealthcheck(false))
	if err != nil {
		t.Fatalf("Unable to create test client: %v", err)
	}
	return client
}
