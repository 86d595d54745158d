// Package app wires storage, services and the HTTP surface into one unit.
package app

import (
	"net/http"
	"time"

	"github.com/ujamaadao/backend/internal/app/httpapi"
	"github.com/ujamaadao/backend/internal/app/metrics"
	"github.com/ujamaadao/backend/internal/app/services/auth"
	"github.com/ujamaadao/backend/internal/app/services/identities"
	"github.com/ujamaadao/backend/internal/app/services/points"
	"github.com/ujamaadao/backend/internal/app/services/projects"
	"github.com/ujamaadao/backend/internal/app/services/proposals"
	"github.com/ujamaadao/backend/internal/app/services/tokens"
	"github.com/ujamaadao/backend/internal/app/services/votes"
	"github.com/ujamaadao/backend/internal/app/signing"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/app/storage/memory"
	"github.com/ujamaadao/backend/pkg/logger"
)

// Stores collects the persistence backends. Leaving everything nil wires a
// single shared in-memory store.
type Stores struct {
	Identities storage.IdentityStore
	Proposals  storage.ProposalStore
	Projects   storage.ProjectStore
	Tokens     storage.TokenStore
	Points     storage.PointStore
	Votes      storage.VoteStore
	Tx         storage.TxRunner
}

// Options tunes the application.
type Options struct {
	JWTSecret      string
	SessionTTL     time.Duration
	AllowedOrigins []string
	Recoverer      signing.Recoverer
	Log            *logger.Logger
}

// Application owns every service and the HTTP router.
type Application struct {
	Auth       *auth.Service
	Tokens     *tokens.Service
	Points     *points.Service
	Votes      *votes.Service
	Identities *identities.Service
	Proposals  *proposals.Service
	Projects   *projects.Service

	Metrics *metrics.Metrics
	server  *httpapi.Server
}

// New builds the application. Nil stores fall back to one shared memory
// backend so tests and dev runs need no setup.
func New(stores Stores, opts Options) *Application {
	if stores.Identities == nil || stores.Proposals == nil || stores.Projects == nil ||
		stores.Tokens == nil || stores.Points == nil || stores.Votes == nil || stores.Tx == nil {
		mem := memory.New()
		if stores.Identities == nil {
			stores.Identities = mem
		}
		if stores.Proposals == nil {
			stores.Proposals = mem
		}
		if stores.Projects == nil {
			stores.Projects = mem
		}
		if stores.Tokens == nil {
			stores.Tokens = mem
		}
		if stores.Points == nil {
			stores.Points = mem
		}
		if stores.Votes == nil {
			stores.Votes = mem
		}
		if stores.Tx == nil {
			stores.Tx = mem
		}
	}
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("app")
	}

	m := metrics.New()
	app := &Application{
		Auth:       auth.New(stores.Identities, opts.Recoverer, opts.JWTSecret, opts.SessionTTL, log.WithField("service", "auth")),
		Tokens:     tokens.New(stores.Tokens, log.WithField("service", "tokens")),
		Points:     points.New(stores.Points, log.WithField("service", "points")),
		Votes:      votes.New(stores.Proposals, stores.Votes, stores.Tx, log.WithField("service", "votes")),
		Identities: identities.New(stores.Identities, log.WithField("service", "identities")),
		Proposals:  proposals.New(stores.Proposals, log.WithField("service", "proposals")),
		Projects:   projects.New(stores.Proposals, stores.Projects, stores.Identities, log.WithField("service", "projects")),
		Metrics:    m,
	}
	app.server = httpapi.NewServer(httpapi.Config{
		Auth:           app.Auth,
		Tokens:         app.Tokens,
		Points:         app.Points,
		Votes:          app.Votes,
		Identities:     app.Identities,
		Proposals:      app.Proposals,
		Projects:       app.Projects,
		Metrics:        m,
		JWTSecret:      opts.JWTSecret,
		AllowedOrigins: opts.AllowedOrigins,
		Log:            log.WithField("service", "httpapi"),
	})
	return app
}

// Handler returns the assembled HTTP router.
func (a *Application) Handler() http.Handler {
	return a.server.Router()
}
