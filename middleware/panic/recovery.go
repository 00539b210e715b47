package panic

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/appbaseio/migrator/util"
	log "github.com/sirupsen/logrus"
)

const logTag = "[recovery]"

// Recovery is a middleware that wraps an http handler to recover from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var err error
		defer func() {
			r := recover()
			if r != nil {
				switch t := r.(type) {
				case string:
					err = errors.New(t)
				case error:
					err = t
				default:
					err = fmt.Errorf("unknown error occurred: %v", r)
				}
				log.Errorln(logTag, ":", req.Method, req.URL.Path, "panicked:", err, "\n", string(debug.Stack()))
				util.WriteBackError(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}()
		next.ServeHTTP(w, req)
	})
}
