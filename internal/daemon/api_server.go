package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jukebox/internal/api"
	"jukebox/internal/config"
	"jukebox/internal/logging"
	"jukebox/internal/logs"
	"jukebox/internal/metrics"
	"jukebox/internal/services"
)

// RequesterHeader names the requester when the body does not.
const RequesterHeader = "X-Jukebox-Requester"

const (
	defaultHistoryLimit = 50
	defaultLogLines     = 100

	serverWriteTimeout = 30 * time.Second
	// maxLogWait leaves room to write a long-poll response before the
	// server's write deadline.
	maxLogWait = serverWriteTimeout - 5*time.Second
)

const messageRateLimited = "Too many requests. Please wait before requesting another song."

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService
	metrics  *metrics.Metrics
	limiter  *requesterLimiter
	engine   *gin.Engine
	logDir   string

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		queueSvc: d.queueSvc,
		metrics:  d.metrics,
		limiter:  newRequesterLimiter(cfg.API.RequestsPerMinute),
		logDir:   cfg.Paths.LogDir,
	}
	srv.engine = srv.routes(cfg.API)
	srv.server = &http.Server{
		Handler:           srv.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", RequesterHeader}
	return cfg
}

func (s *apiServer) routes(cfg config.API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	protected := router.Group("/api")
	protected.Use(authMiddleware(cfg.Token))
	{
		protected.GET("/status", s.handleStatus)
		protected.GET("/queue", s.handleQueue)
		protected.GET("/songs", s.handleSongs)
		protected.GET("/songs/search", s.handleSearch)
		protected.POST("/songs/search", s.handleSearch)
		protected.GET("/songs/:id", s.handleSong)
		protected.POST("/songs/:id/request", s.handleSubmit)
		protected.GET("/history", s.handleHistory)
		protected.GET("/logs", s.handleLogs)
	}
	return router
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// requestLogger tags each request with a correlation id and logs it at debug.
func (s *apiServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		ctx := services.WithCorrelationID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String(logging.FieldEventType, "api_request"),
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *apiServer) handleStatus(c *gin.Context) {
	status := s.daemon.Status(c.Request.Context())
	deps := make([]api.DependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		deps[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	c.JSON(http.StatusOK, api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		ProgramName:    status.ProgramName,
		StorageBackend: status.StorageBackend,
		DatabasePath:   status.DatabasePath,
		LockFilePath:   status.LockFilePath,
		Playback:       api.FromStatusSummary(status.Playback),
		Dependencies:   deps,
	})
}

func (s *apiServer) handleQueue(c *gin.Context) {
	view, err := s.queueSvc.Queue(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *apiServer) handleSongs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	songs, err := s.queueSvc.Songs(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.SongListResponse{Songs: songs})
}

func (s *apiServer) handleSearch(c *gin.Context) {
	keyword := c.Query("keyword")
	if c.Request.Method == http.MethodPost {
		if value, ok := c.GetPostForm("keyword"); ok {
			keyword = value
		}
	}
	result, err := s.queueSvc.Search(c.Request.Context(), keyword)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *apiServer) handleSong(c *gin.Context) {
	id, ok := s.songID(c)
	if !ok {
		return
	}
	song, err := s.queueSvc.Song(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.SongResponse{Song: *song})
}

type submitBody struct {
	Requester string `json:"requester" form:"requester"`
}

func (s *apiServer) handleSubmit(c *gin.Context) {
	id, ok := s.songID(c)
	if !ok {
		return
	}
	requester := s.requester(c)
	limiterKey := requester
	if limiterKey == "" {
		limiterKey = c.ClientIP()
	}
	if !s.limiter.Allow(limiterKey) {
		s.metrics.ObserveSubmission(metrics.SubmissionRateLimited)
		c.JSON(http.StatusTooManyRequests, api.Message{Message: messageRateLimited, IsError: true})
		return
	}

	result, err := s.queueSvc.Submit(c.Request.Context(), id, requester)
	if err != nil {
		c.JSON(api.StatusCode(err), result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// requester reads the requester from a JSON or form body, falling back to
// RequesterHeader.
func (s *apiServer) requester(c *gin.Context) string {
	var body submitBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&body); err != nil {
			s.logger.Debug("submit body ignored", logging.Error(err))
		}
	}
	if value := strings.TrimSpace(body.Requester); value != "" {
		return value
	}
	return strings.TrimSpace(c.GetHeader(RequesterHeader))
}

func (s *apiServer) handleHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}
	items, err := s.queueSvc.History(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.HistoryResponse{Items: items})
}

// handleLogs tails the daemon log. offset=-1 (the default) returns the last
// limit lines; follow with wait_ms long-polls for new lines.
func (s *apiServer) handleLogs(c *gin.Context) {
	opts := logs.TailOptions{Offset: -1, Limit: defaultLogLines}
	var err error
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if opts.Offset, err = strconv.ParseInt(raw, 10, 64); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid offset"})
			return
		}
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if opts.Limit, err = strconv.Atoi(raw); err != nil || opts.Limit < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid limit"})
			return
		}
	}
	opts.Follow = c.Query("follow") == "1" || strings.EqualFold(c.Query("follow"), "true")
	if raw := strings.TrimSpace(c.Query("wait_ms")); raw != "" {
		millis, err := strconv.Atoi(raw)
		if err != nil || millis < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid wait_ms"})
			return
		}
		opts.Wait = clampLogWait(time.Duration(millis) * time.Millisecond)
	}

	result, err := logs.Tail(c.Request.Context(), logs.CurrentFile(s.logDir), opts)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.writeError(c, err)
		return
	}
	lines := result.Lines
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, api.LogTailResponse{Lines: lines, Offset: result.Offset})
}

func (s *apiServer) songID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid song id"})
		return 0, false
	}
	return id, true
}

func (s *apiServer) writeError(c *gin.Context, err error) {
	status := api.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(c.Request.Context(), s.logger).Error("api request failed",
			logging.String(logging.FieldEventType, "api_error"),
			logging.String("path", c.FullPath()),
			logging.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: err.Error()})
}

func clampLogWait(wait time.Duration) time.Duration {
	return min(max(wait, 0), maxLogWait)
}
