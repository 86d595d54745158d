// Package httpapi exposes the public REST surface over gorilla/mux.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ujamaadao/backend/internal/app/metrics"
	"github.com/ujamaadao/backend/internal/app/services/auth"
	"github.com/ujamaadao/backend/internal/app/services/identities"
	"github.com/ujamaadao/backend/internal/app/services/points"
	"github.com/ujamaadao/backend/internal/app/services/projects"
	"github.com/ujamaadao/backend/internal/app/services/proposals"
	"github.com/ujamaadao/backend/internal/app/services/tokens"
	"github.com/ujamaadao/backend/internal/app/services/votes"
	"github.com/ujamaadao/backend/pkg/logger"
)

// Server holds the services behind the REST routes.
type Server struct {
	auth       *auth.Service
	tokens     *tokens.Service
	points     *points.Service
	votes      *votes.Service
	identities *identities.Service
	proposals  *proposals.Service
	projects   *projects.Service

	metrics        *metrics.Metrics
	jwtSecret      string
	allowedOrigins []string
	log            *logger.Logger
}

// Config wires the server dependencies.
type Config struct {
	Auth       *auth.Service
	Tokens     *tokens.Service
	Points     *points.Service
	Votes      *votes.Service
	Identities *identities.Service
	Proposals  *proposals.Service
	Projects   *projects.Service

	Metrics        *metrics.Metrics
	JWTSecret      string
	AllowedOrigins []string
	Log            *logger.Logger
}

// NewServer builds the REST server.
func NewServer(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		auth:           cfg.Auth,
		tokens:         cfg.Tokens,
		points:         cfg.Points,
		votes:          cfg.Votes,
		identities:     cfg.Identities,
		proposals:      cfg.Proposals,
		projects:       cfg.Projects,
		metrics:        m,
		jwtSecret:      cfg.JWTSecret,
		allowedOrigins: cfg.AllowedOrigins,
		log:            log,
	}
}

// Router assembles every route with CORS and metrics instrumentation.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/nonce", s.handleNonce).Methods(http.MethodGet)
	api.HandleFunc("/auth/verify", s.handleVerify).Methods(http.MethodPost)
	api.HandleFunc("/votes/proposal/{id}", s.handleTally).Methods(http.MethodGet)
	api.HandleFunc("/token-balance", s.handleGetTokenBalance).Methods(http.MethodGet)
	api.HandleFunc("/impact-points", s.handleGetImpactPoints).Methods(http.MethodGet)
	api.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/groups/{id}", s.handleGetGroup).Methods(http.MethodGet)
	api.HandleFunc("/proposals", s.handleListProposals).Methods(http.MethodGet)
	api.HandleFunc("/proposals/{id}", s.handleGetProposal).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/participants", s.handleListParticipants).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(mux.MiddlewareFunc(s.requireAuth))
	protected.HandleFunc("/votes/cast", s.handleCastVote).Methods(http.MethodPost)
	protected.HandleFunc("/token-balance", s.handleAdjustTokenBalance).Methods(http.MethodPost)
	protected.HandleFunc("/impact-points", s.handleAdjustImpactPoints).Methods(http.MethodPost)
	protected.HandleFunc("/users/{id}", s.handleUpdateUser).Methods(http.MethodPatch)
	protected.HandleFunc("/groups", s.handleCreateGroup).Methods(http.MethodPost)
	protected.HandleFunc("/proposals", s.handleCreateProposal).Methods(http.MethodPost)
	protected.HandleFunc("/proposals/{id}", s.handleUpdateProposal).Methods(http.MethodPatch)
	protected.HandleFunc("/projects/from-proposal", s.handleCreateProject).Methods(http.MethodPost)
	protected.HandleFunc("/projects/{id}/participants", s.handleAddParticipant).Methods(http.MethodPost)

	return s.cors(s.metrics.Instrument(r))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
