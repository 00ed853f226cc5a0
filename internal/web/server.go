// Package web serves the browser UI: login and registration, document
// upload, chat over indexed documents, and administration.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/auth"
	"github.com/fyrsmithlabs/docqa/internal/config"
	"github.com/fyrsmithlabs/docqa/internal/document"
	"github.com/fyrsmithlabs/docqa/internal/index"
	"github.com/fyrsmithlabs/docqa/internal/logging"
	"github.com/fyrsmithlabs/docqa/internal/qa"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

// VectorService is the slice of the vector store manager the handlers use.
type VectorService interface {
	EnsureIndex(ctx context.Context) (vectorstore.EnsureOutcome, error)
	Ingest(ctx context.Context, chunks []vectorstore.Chunk) (int, error)
	EnumerateFilenames(ctx context.Context, username string) ([]string, error)
	NewRetriever(scope vectorstore.Scope, k int) vectorstore.Retriever
	DeleteAll(ctx context.Context) (vectorstore.DeleteOutcome, error)
	DeleteForUser(ctx context.Context, username string) (vectorstore.DeleteOutcome, error)
	Stats(ctx context.Context) (index.Stats, error)
}

// Answerer answers a question over a retriever with conversation history.
type Answerer interface {
	Ask(ctx context.Context, question string, retriever vectorstore.Retriever, history []qa.Exchange) (qa.Answer, error)
}

// UserStore is the slice of the auth store the handlers use.
type UserStore interface {
	Register(ctx context.Context, username, email, password string) (*auth.User, error)
	Authenticate(ctx context.Context, login, password string) (*auth.User, error)
	GetByID(ctx context.Context, id int64) (*auth.User, error)
	List(ctx context.Context) ([]*auth.User, error)
	Delete(ctx context.Context, id int64) error
}

// Server serves the web UI over echo.
type Server struct {
	echo      *echo.Echo
	cfg       config.ServerConfig
	logger    *logging.Logger
	vectors   VectorService
	answerer  Answerer
	users     UserStore
	sessions  *auth.SessionManager
	processor *document.Processor
	history   *historyStore
	topK      int
}

// NewServer wires the handlers, middleware, and templates.
func NewServer(
	cfg config.ServerConfig,
	vectors VectorService,
	answerer Answerer,
	users UserStore,
	sessions *auth.SessionManager,
	processor *document.Processor,
	topK int,
	logger *logging.Logger,
) (*Server, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = r

	s := &Server{
		echo:      e,
		cfg:       cfg,
		logger:    logger.Named("web"),
		vectors:   vectors,
		answerer:  answerer,
		users:     users,
		sessions:  sessions,
		processor: processor,
		history:   newHistoryStore(),
		topK:      topK,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	e.Use(s.sessionMiddleware)

	s.registerRoutes()
	return s, nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start)

		s.logger.Info(c.Request().Context(), "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return err
	}
}

func (s *Server) registerRoutes() {
	e := s.echo

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/chat")
	})

	e.GET("/login", s.handleLoginPage)
	e.POST("/login", s.handleLogin)
	e.GET("/register", s.handleRegisterPage)
	e.POST("/register", s.handleRegister)
	e.GET("/logout", s.handleLogout)

	authed := e.Group("", requireUser)
	authed.GET("/chat", s.handleChatPage)
	authed.POST("/upload", s.handleUpload)
	authed.POST("/ask", s.handleAsk)

	admin := e.Group("/admin", requireAdmin)
	admin.GET("", s.handleAdminPage)
	admin.POST("/delete-all", s.handleDeleteAll)
	admin.POST("/users/:id/delete", s.handleDeleteUser)
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}
