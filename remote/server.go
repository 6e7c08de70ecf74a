package remote

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zeu5/grid-rl-env/envshim"
	"github.com/zeu5/grid-rl-env/gymcompat"
	"github.com/zeu5/grid-rl-env/util"
	"go.uber.org/zap"
)

// CreateRequest carries the shim configuration of a new session
type CreateRequest struct {
	Config map[string]any `json:"config"`
}

// SessionInfo describes an open session
type SessionInfo struct {
	ID               string         `json:"id"`
	Config           envshim.Config `json:"config"`
	ObservationSpace SpaceSpec      `json:"observation_space"`
	ActionSpace      SpaceSpec      `json:"action_space"`
	NoopAction       []float64      `json:"noop_action"`
}

type ResetRequest struct {
	Seed    *int64         `json:"seed,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ResetResponse struct {
	Observation []float64           `json:"observation"`
	Info        gymcompat.ResetInfo `json:"info"`
}

type StepRequest struct {
	Action []float64 `json:"action"`
}

// session serializes the calls made on one environment
type session struct {
	lock *sync.Mutex
	env  *envshim.Env
	info SessionInfo
}

// Server hosts environment sessions over HTTP
type Server struct {
	Addr string

	engine  *gin.Engine
	server  *http.Server
	logger  *zap.Logger
	metrics *Metrics

	lock     *sync.Mutex
	sessions map[string]*session
	options  []envshim.Option
}

// NewServer builds the router. Options are passed to every environment
// the server creates.
func NewServer(addr string, logger *zap.Logger, options ...envshim.Option) *Server {
	s := &Server{
		Addr:     addr,
		logger:   util.OrNop(logger),
		metrics:  NewMetrics(),
		lock:     new(sync.Mutex),
		sessions: make(map[string]*session),
		options:  options,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	envs := r.Group("/envs")
	envs.POST("", s.handleCreate)
	envs.GET("/:id", s.handleGet)
	envs.DELETE("/:id", s.handleDelete)
	envs.POST("/:id/reset", s.handleReset)
	envs.POST("/:id/step", s.handleStep)
	s.engine = r
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Metrics() *Metrics { return s.metrics }

// Start serves until the context is cancelled, then closes every session
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("serving environments", zap.String("addr", s.Addr))

	select {
	case err := <-errCh:
		s.CloseAll()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)
	s.CloseAll()
	return err
}

// CloseAll closes and forgets every session
func (s *Server) CloseAll() {
	s.lock.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.lock.Unlock()
	for id, sess := range sessions {
		sess.lock.Lock()
		if err := sess.env.Close(); err != nil {
			s.logger.Warn("closing session", zap.String("id", id), zap.Error(err))
		}
		sess.lock.Unlock()
	}
	s.metrics.Sessions.Set(0)
}

func (s *Server) get(id string) (*session, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) fail(c *gin.Context, err error, fallback int) {
	code, status := classify(err, fallback)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, errorResponse{Error: err.Error(), Code: code})
}

func (s *Server) handleHealth(c *gin.Context) {
	s.lock.Lock()
	n := len(s.sessions)
	s.lock.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": n})
}

func (s *Server) handleCreate(c *gin.Context) {
	req := CreateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err, http.StatusBadRequest)
		return
	}
	start := time.Now()
	env, err := envshim.New(req.Config, s.options...)
	if err != nil {
		s.fail(c, err, http.StatusBadRequest)
		return
	}
	s.metrics.Latency.WithLabelValues("create").Observe(time.Since(start).Seconds())

	info, err := describe(uuid.NewString(), env)
	if err != nil {
		env.Close()
		s.fail(c, err, http.StatusInternalServerError)
		return
	}
	s.lock.Lock()
	s.sessions[info.ID] = &session{lock: new(sync.Mutex), env: env, info: info}
	s.lock.Unlock()
	s.metrics.Sessions.Inc()
	s.metrics.SessionsTotal.WithLabelValues(info.Config.ActType).Inc()
	s.logger.Debug("session created", zap.String("id", info.ID), zap.String("env_name", info.Config.EnvName))

	c.JSON(http.StatusCreated, info)
}

func describe(id string, env *envshim.Env) (SessionInfo, error) {
	obs, err := EncodeSpace(env.ObservationSpace())
	if err != nil {
		return SessionInfo{}, err
	}
	act, err := EncodeSpace(env.ActionSpace())
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{
		ID:               id,
		Config:           env.Config(),
		ObservationSpace: obs,
		ActionSpace:      act,
		NoopAction:       env.NoopAction(),
	}, nil
}

func (s *Server) handleGet(c *gin.Context) {
	sess, ok := s.get(c.Param("id"))
	if !ok {
		s.fail(c, ErrUnknownSession, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, sess.info)
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	s.lock.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.lock.Unlock()
	if !ok {
		s.fail(c, ErrUnknownSession, http.StatusNotFound)
		return
	}
	s.metrics.Sessions.Dec()

	sess.lock.Lock()
	err := sess.env.Close()
	sess.lock.Unlock()
	if err != nil {
		s.fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) handleReset(c *gin.Context) {
	sess, ok := s.get(c.Param("id"))
	if !ok {
		s.fail(c, ErrUnknownSession, http.StatusNotFound)
		return
	}
	req := ResetRequest{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, err, http.StatusBadRequest)
			return
		}
	}
	start := time.Now()
	sess.lock.Lock()
	obs, info, err := sess.env.Reset(req.Seed, req.Options)
	sess.lock.Unlock()
	if err != nil {
		s.fail(c, err, http.StatusBadRequest)
		return
	}
	s.metrics.Latency.WithLabelValues("reset").Observe(time.Since(start).Seconds())
	s.metrics.Resets.Inc()
	c.JSON(http.StatusOK, ResetResponse{Observation: obs, Info: info})
}

func (s *Server) handleStep(c *gin.Context) {
	sess, ok := s.get(c.Param("id"))
	if !ok {
		s.fail(c, ErrUnknownSession, http.StatusNotFound)
		return
	}
	req := StepRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, err, http.StatusBadRequest)
		return
	}
	start := time.Now()
	sess.lock.Lock()
	res, err := sess.env.Step(req.Action)
	sess.lock.Unlock()
	if err != nil {
		s.fail(c, err, http.StatusInternalServerError)
		return
	}
	s.metrics.Latency.WithLabelValues("step").Observe(time.Since(start).Seconds())
	s.metrics.Steps.WithLabelValues(stepOutcome(res.Terminated, res.Truncated)).Inc()
	c.JSON(http.StatusOK, res)
}
