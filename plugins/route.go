package plugins

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appbaseio/migrator/middleware/logger"
	recovery "github.com/appbaseio/migrator/middleware/panic"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// Route is a type that contains information about a route.
type Route struct {
	// Name is the name of the route. In order to avoid conflicts in
	// the router, the name preferably should be a combination of both
	// http method type and the path.
	Name string

	// Methods represents an array of HTTP method type. It is preferable
	// to use values defined in net/http package to avoid typos.
	Methods []string

	// Path is the path that it expects to serve the requests on.
	// Variables must be declared in the gorilla/mux format.
	Path string

	// HandlerFunc is the handler function that is responsible for
	// responding the request made to this route.
	HandlerFunc http.HandlerFunc

	// Description about this route.
	Description string
}

// shutdownTimeout bounds the wait for in-flight requests on shutdown.
const shutdownTimeout = 30 * time.Second

// Handler wraps router with the CORS policy, panic recovery and request
// logging shared by every route.
func Handler(router *mux.Router) http.Handler {
	// CORS policy
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"HEAD", "GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"*"},
	})

	handler := c.Handler(router)
	handler = recovery.Recovery(handler)
	// Add logger middleware
	handler = logger.Log(handler)
	return handler
}

// Server serves a router until it is interrupted.
type Server struct {
	server  http.Server
	isHttps bool
}

// NewServer returns a server for router listening on address:port.
func NewServer(router *mux.Router, address string, port int, isHttps bool) *Server {
	s := &Server{isHttps: isHttps}
	s.server.Addr = fmt.Sprintf("%s:%d", address, port)
	s.server.Handler = Handler(router)
	return s
}

// Start listens and serves until ctx is done or the process receives an
// interrupt, then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	idleConnectionsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
		case <-ctx.Done():
		}

		log.Debug(logTag, ": going to shutdown the server now")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			// Error from closing listeners, or context timeout:
			log.Errorln(logTag, ": HTTP server Shutdown:", err)
		}
		close(idleConnectionsClosed)
	}()

	log.Println(logTag, ": listening on", s.server.Addr)
	var serverError error
	if s.isHttps {
		httpsCert := os.Getenv("HTTPS_CERT")
		httpsKey := os.Getenv("HTTPS_KEY")
		serverError = s.server.ListenAndServeTLS(httpsCert, httpsKey)
	} else {
		serverError = s.server.ListenAndServe()
	}
	if serverError != http.ErrServerClosed {
		return fmt.Errorf("HTTP server ListenAndServe: %w", serverError)
	}

	<-idleConnectionsClosed
	return nil
}
