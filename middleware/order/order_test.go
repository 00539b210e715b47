package order

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appbaseio/migrator/middleware"
	. "github.com/smartystreets/goconvey/convey"
)

func tag(name string, seen *[]string) middleware.Middleware {
	return func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			*seen = append(*seen, name)
			h(w, r)
		}
	}
}

func TestFifo(t *testing.T) {
	Convey("Fifo runs the middleware in the given order", t, func() {
		var seen []string
		h := (&Fifo{}).Adapt(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, "handler")
		}, tag("first", &seen), tag("second", &seen))
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		So(seen, ShouldResemble, []string{"first", "second", "handler"})
	})
}
