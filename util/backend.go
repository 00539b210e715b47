package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
)

// Backend is the search engine the migrator talks to.
type Backend int

const (
	ElasticSearch Backend = iota
	OpenSearch
)

// String returns the string representation
// of the Backend
func (b Backend) String() string {
	switch b {
	case ElasticSearch:
		return "elasticsearch"
	case OpenSearch:
		return "opensearch"
	}
	return ""
}

// ParseBackend returns the Backend named by s. An empty string
// selects ElasticSearch.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ElasticSearch.String():
		return ElasticSearch, nil
	case OpenSearch.String():
		return OpenSearch, nil
	}
	return ElasticSearch, fmt.Errorf("invalid backend passed: %s", s)
}

// GetBackend returns the backend configured with SEARCH_BACKEND.
func GetBackend() (Backend, error) {
	return ParseBackend(os.Getenv("SEARCH_BACKEND"))
}

// UnmarshalJSON is the implementation of Unmarshaler interface to unmarshal the Backend
func (b *Backend) UnmarshalJSON(bytes []byte) error {
	var backend string
	err := json.Unmarshal(bytes, &backend)
	if err != nil {
		return err
	}
	if backend == "" {
		return fmt.Errorf("invalid backend passed: %s", backend)
	}
	parsed, err := ParseBackend(backend)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalJSON is the implementation of the Marshaler interface to marshal the Backend
func (b Backend) MarshalJSON() ([]byte, error) {
	backend := b.String()

	if backend == "" {
		return nil, fmt.Errorf("invalid backend passed: %d", int(b))
	}

	return json.Marshal(backend)
}

func (b Backend) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []interface{}{
			ElasticSearch.String(),
			OpenSearch.String(),
		},
		Title:       "Backend",
		Description: "Search engine the migrator talks to",
	}
}
