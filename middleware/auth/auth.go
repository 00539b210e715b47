// Package auth protects the migrator routes with HTTP basic auth checked
// against a bcrypt hash.
package auth

import (
	"net/http"
	"os"

	"github.com/appbaseio/migrator/middleware"
	"github.com/appbaseio/migrator/util"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	logTag          = "[auth]"
	envUsername     = "MIGRATOR_USERNAME"
	envPasswordHash = "MIGRATOR_PASSWORD_HASH"
)

// Credentials is the single account allowed to call the migrator.
type Credentials struct {
	Username     string
	PasswordHash []byte
}

// FromEnv reads the credentials from MIGRATOR_USERNAME and
// MIGRATOR_PASSWORD_HASH. It returns nil when no username is set, which
// disables authentication.
func FromEnv() *Credentials {
	username := os.Getenv(envUsername)
	if username == "" {
		return nil
	}
	hash := os.Getenv(envPasswordHash)
	if hash == "" {
		log.Warnln(logTag, ":", envUsername, "is set without", envPasswordHash+", every request will be rejected")
	}
	return &Credentials{Username: username, PasswordHash: []byte(hash)}
}

// BasicAuth returns a middleware rejecting requests that do not carry
// creds. A nil creds lets every request through.
func BasicAuth(creds *Credentials) middleware.Middleware {
	return func(h http.HandlerFunc) http.HandlerFunc {
		if creds == nil {
			return h
		}
		return func(w http.ResponseWriter, req *http.Request) {
			username, password, ok := req.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="migrator"`)
				util.WriteBackError(w, "request credentials are required", http.StatusUnauthorized)
				return
			}
			if username != creds.Username {
				util.WriteBackError(w, "invalid credentials provided", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword(creds.PasswordHash, []byte(password)); err != nil {
				log.Debugln(logTag, ": password mismatch for", username+":", err)
				util.WriteBackError(w, "invalid credentials provided", http.StatusUnauthorized)
				return
			}
			h(w, req)
		}
	}
}
