// Package api exposes the ballot lifecycle over HTTP: fetch, draft save and
// the one-shot publish.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/retrozk/ballotd/service"
	"go.vocdoni.io/dvote/log"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Ballots *service.BallotService
	// PublishReady reports whether the verification artifact set loaded. When
	// false, routes that change ballot state answer 503 while reads keep
	// working.
	PublishReady bool
}

// API type represents the ballot API HTTP server.
type API struct {
	router       *chi.Mux
	ballots      *service.BallotService
	publishReady bool
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Ballots == nil {
		return nil, fmt.Errorf("missing ballot service instance")
	}
	a := &API{
		ballots:      conf.Ballots,
		publishReady: conf.PublishReady,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", BallotEndpoint, "method", "GET")
	a.router.Get(BallotEndpoint, a.ballot)
	log.Infow("register handler", "endpoint", BallotEndpoint, "method", "POST")
	a.router.Post(BallotEndpoint, a.saveBallot)
	log.Infow("register handler", "endpoint", BallotPublishEndpoint, "method", "POST")
	a.router.Post(BallotPublishEndpoint, a.publishBallot)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
