package util

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/appbaseio/migrator/errors"
	"github.com/appbaseio/migrator/internal/es7"
	"github.com/appbaseio/migrator/internal/opensearch"
	"github.com/appbaseio/migrator/model/reindex"
	v "github.com/hashicorp/go-version"
	"github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

const logTag = "[util]"

// MinimumVersion is the oldest Elasticsearch release accepting the
// remove_index alias action.
const MinimumVersion = "6.4.0"

// GetESURL returns elasticsearch url with escaped auth
func GetESURL() (string, error) {
	esURL := os.Getenv("ES_CLUSTER_URL")
	if esURL == "" {
		return "", errors.NewEnvVarNotSetError("ES_CLUSTER_URL")
	}
	return EscapeCredentials(esURL)
}

// EscapeCredentials path-escapes the username and password embedded in
// esURL so that they may carry reserved characters.
func EscapeCredentials(esURL string) (string, error) {
	if !strings.Contains(esURL, "@") {
		return esURL, nil
	}
	splitIndex := strings.LastIndex(esURL, "@")
	protocolWithCredentials := strings.SplitN(esURL[0:splitIndex], "://", 2)
	if len(protocolWithCredentials) != 2 {
		return "", fmt.Errorf("invalid cluster url %s: missing protocol", MaskCredentials(esURL))
	}
	protocol := protocolWithCredentials[0]
	credentials := protocolWithCredentials[1]
	host := esURL[splitIndex+1:]

	credentialSeparator := strings.Index(credentials, ":")
	if credentialSeparator < 0 {
		return protocol + "://" + url.PathEscape(credentials) + "@" + host, nil
	}
	username := credentials[0:credentialSeparator]
	password := credentials[credentialSeparator+1:]
	return protocol + "://" + url.PathEscape(username) + ":" + url.PathEscape(password) + "@" + host, nil
}

func isSniffingEnabled() bool {
	return os.Getenv("SET_SNIFFING") == "true"
}

// NewClient returns the engine client selected by SEARCH_BACKEND for the
// cluster at ES_CLUSTER_URL.
func NewClient() (reindex.Client, error) {
	backend, err := GetBackend()
	if err != nil {
		return nil, err
	}
	esURL, err := GetESURL()
	if err != nil {
		return nil, err
	}
	maxRetries, err := GetEnvInt("ES_MAX_RETRIES", 0)
	if err != nil {
		return nil, err
	}

	switch backend {
	case OpenSearch:
		client, err := opensearch.FromURL(esURL, HTTPClient().Transport, maxRetries)
		if err != nil {
			return nil, err
		}
		log.Println(logTag, ": opensearch client instantiated")
		return client, nil
	default:
		client, err := newElasticClient(esURL, maxRetries)
		if err != nil {
			return nil, err
		}
		esVersion, err := client.Version(esURL)
		if err != nil {
			return nil, fmt.Errorf("error while retrieving the elastic version: %w", err)
		}
		if err := ValidateVersion(esVersion); err != nil {
			return nil, err
		}
		log.Println(logTag, ": client instantiated, elastic search version is", esVersion)
		return client, nil
	}
}

func newElasticClient(esURL string, maxRetries int) (*es7.Client, error) {
	loggerT := log.New()
	wrappedLoggerDebug := &WrapKitLoggerDebug{*loggerT}
	wrappedLoggerError := &WrapKitLoggerError{*loggerT}

	return es7.New(esURL,
		elastic.SetRetrier(NewRetrier(maxRetries)),
		elastic.SetSniff(isSniffingEnabled()),
		elastic.SetHttpClient(HTTPClient()),
		elastic.SetErrorLog(wrappedLoggerError),
		elastic.SetInfoLog(wrappedLoggerDebug),
		elastic.SetTraceLog(wrappedLoggerDebug),
	)
}

// ValidateVersion returns an error if esVersion is older than MinimumVersion.
func ValidateVersion(esVersion string) error {
	current, err := v.NewVersion(esVersion)
	if err != nil {
		return fmt.Errorf("invalid elastic version %q: %w", esVersion, err)
	}
	minimum, _ := v.NewVersion(MinimumVersion)
	if current.LessThan(minimum) {
		return fmt.Errorf("elasticsearch %s is not supported, %s or later is required", esVersion, MinimumVersion)
	}
	return nil
}
