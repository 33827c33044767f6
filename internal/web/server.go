package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/gmedchain-web/internal/dialog"
	"github.com/ksred/gmedchain-web/internal/gmedchain"
	"github.com/ksred/gmedchain-web/internal/metrics"
	"github.com/ksred/gmedchain-web/internal/results"
	"github.com/ksred/gmedchain-web/internal/session"
	"github.com/ksred/gmedchain-web/internal/view"
	"github.com/ksred/gmedchain-web/pkg/middleware"
	"github.com/ksred/gmedchain-web/pkg/response"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Node is everything the frontend asks of the gmedchain node
type Node interface {
	view.Backend
	dialog.Submitter
	dialog.StatusUpdater
	Status(ctx context.Context) (string, error)
}

type Config struct {
	Node     Node
	Results  *results.Store
	Sessions *session.Service
	// StrictForm also requires a counterparty before submitting
	StrictForm bool
	// AllowedOrigins for the JSON surface; empty allows any origin
	AllowedOrigins []string
	// RateLimits defaults to middleware.DefaultRules
	RateLimits []middleware.Rule
}

// Server is the gin frontend: the main view, its dialogs and the JSON
// surface over the same controllers
type Server struct {
	node       Node
	results    *results.Store
	sessions   *session.Service
	strictForm bool

	router  *gin.Engine
	handler http.Handler
	logger  zerolog.Logger
}

func NewServer(cfg Config) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"next": nextTransition,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	rules := cfg.RateLimits
	if rules == nil {
		rules = middleware.DefaultRules
	}

	s := &Server{
		node:       cfg.Node,
		results:    cfg.Results,
		sessions:   cfg.Sessions,
		strictForm: cfg.StrictForm,
		logger:     log.With().Str("component", "web").Logger(),
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.NewRateLimiter(rules).Handler())
	router.SetHTMLTemplate(tmpl)
	s.router = router
	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Dialog-Token"},
	})
	s.handler = c.Handler(router)

	return s, nil
}

// Handler is the root HTTP handler, CORS included
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) setupRoutes() {
	r := s.router

	r.GET("/", s.IndexHandler())
	r.POST("/orders", middleware.DialogToken(s.sessions, s.expiredDialogPage), s.CreateOrderHandler())
	r.POST("/orders/:linearId/status", s.UpdateStatusHandler())
	r.GET("/results/:id", s.ResultHandler())
	r.POST("/results/:id/dismiss", s.DismissResultHandler())

	r.GET("/health", s.HealthHandler())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/ui/api")
	{
		api.GET("/view", s.APIViewHandler())
		api.POST("/orders", middleware.DialogToken(s.sessions, func(c *gin.Context, err error) {
			response.Unauthorized(c, "Dialog token is invalid or expired")
		}), s.APICreateOrderHandler())
		api.GET("/results/:id", s.APIResultHandler())
		api.DELETE("/results/:id", s.APIDismissResultHandler())
	}
}

// newView returns a controller over the node for one request
func (s *Server) newView() *view.Controller {
	return view.NewController(view.Config{
		Backend:    s.node,
		Submitter:  s.node,
		StrictForm: s.strictForm,
	})
}

// restore rebuilds the create dialog a token was issued for
func (s *Server) restore(snap *session.Snapshot) *dialog.CreateDialog {
	return dialog.NewCreateDialog(dialog.Params{
		Identity:  snap.Identity,
		Peers:     snap.Peers,
		Submitter: s.node,
		Strict:    s.strictForm,
	})
}

// issue signs the snapshot of an opened create dialog
func (s *Server) issue(d *dialog.CreateDialog) (string, error) {
	return s.sessions.Issue(session.Snapshot{
		Identity: d.Identity(),
		Peers:    d.Peers(),
	})
}

// track opens a pending result dialog for command and fills it once the
// command resolves
func (s *Server) track(command string, pending <-chan *dialog.ResultDialog) (*results.Record, error) {
	rec, err := s.results.Open(command)
	if err != nil {
		go func() {
			for range pending {
			}
		}()
		return nil, err
	}

	metrics.ResultDialogs.Inc()
	go s.collect(rec.ResultID, command, pending)
	return rec, nil
}

func (s *Server) collect(resultID, command string, pending <-chan *dialog.ResultDialog) {
	defer metrics.ResultDialogs.Dec()

	rd, ok := <-pending
	if !ok {
		return
	}

	msg := rd.Message()
	logger := s.logger.With().Str("result_id", resultID).Str("command", command).Logger()
	logger.Debug().Int("status_code", msg.StatusCode).Msg("command resolved")

	if err := s.results.Deliver(resultID, msg); err != nil {
		if errors.Is(err, results.ErrResultNotFound) {
			logger.Debug().Msg("result dialog dismissed before the node answered")
			return
		}
		logger.Error().Err(err).Msg("failed to deliver command result")
	}
}

func nextTransition(status gmedchain.Status) *gmedchain.Transition {
	t, ok := gmedchain.NextTransition(status)
	if !ok {
		return nil
	}
	return &t
}
