// Package api exposes the query pipelines over HTTP using gin.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/logging"
)

// Runner executes one query request to a terminal state. Both pipeline
// runners satisfy it.
type Runner interface {
	Run(ctx context.Context, req query.Request) query.RunResult
}

// Server is the HTTP interface over the two pipelines.
type Server struct {
	engine   *gin.Engine
	database Runner
	api      Runner
}

// NewServer creates a server. Either runner may be nil; its route then
// answers 503.
func NewServer(database, api Runner) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:   engine,
		database: database,
		api:      api,
	}

	engine.GET("/healthz", s.health)
	v1 := engine.Group("/v1")
	{
		v1.POST("/queries/database", s.queryDatabase)
		v1.POST("/queries/api", s.queryAPI)
	}
	return s
}

// Handler returns the http.Handler for serving or testing.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	logging.Info().
		Add(logging.Reason(addr)).
		Msg("http server listening")

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errc:
		return err
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type databaseQueryRequest struct {
	Question    string `json:"question" binding:"required"`
	DatabaseURL string `json:"database_url" binding:"required"`
}

type apiQueryRequest struct {
	Question string `json:"question" binding:"required"`
	BaseURL  string `json:"base_url" binding:"required"`
}

// runResponse is the wire shape of a finished run.
type runResponse struct {
	RunID      string        `json:"run_id"`
	Succeeded  bool          `json:"succeeded"`
	DurationMS int64         `json:"duration_ms"`
	Report     *query.Report `json:"report,omitempty"`
	Failure    *runFailure   `json:"failure,omitempty"`
}

type runFailure struct {
	Kind   string `json:"kind"`
	State  string `json:"state"`
	Reason string `json:"reason"`
}

func (s *Server) queryDatabase(c *gin.Context) {
	if s.database == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database pipeline not configured"})
		return
	}

	var body databaseQueryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := query.NewDatabaseRequest(body.Question, body.DatabaseURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respond(c, s.database.Run(c.Request.Context(), req))
}

func (s *Server) queryAPI(c *gin.Context) {
	if s.api == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "api pipeline not configured"})
		return
	}

	var body apiQueryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := query.NewAPIRequest(body.Question, body.BaseURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respond(c, s.api.Run(c.Request.Context(), req))
}

// respond renders a terminal run result. A failed run is still a handled
// request: it answers 422 with the classified failure.
func (s *Server) respond(c *gin.Context, result query.RunResult) {
	out := runResponse{
		RunID:      result.RunID,
		Succeeded:  result.Succeeded(),
		DurationMS: result.Duration.Milliseconds(),
		Report:     result.Report,
	}
	status := http.StatusOK
	if result.Failure != nil {
		out.Failure = &runFailure{
			Kind:   string(result.Failure.Kind),
			State:  result.Failure.State,
			Reason: result.Failure.Reason,
		}
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, out)
}
