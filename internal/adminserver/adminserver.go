// Package adminserver exposes a small read-only operator HTTP surface:
// aggregate health, queue depth, and last-processed time. It is never the
// farmer-facing channel — that stays IVR/interface-only per spec §9's
// design note — this is ops-only tooling for whoever runs the service.
package adminserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Hurricane0017/agri-advisor/o11y"
)

// Stats reports live pipeline state the admin surface exposes alongside
// health. Both fields are optional; a nil func is reported as unknown
// rather than causing a 500.
type Stats struct {
	// QueueDepth returns the number of audio tasks currently queued or
	// in flight across the pipeline pool.
	QueueDepth func() int

	// LastProcessed returns the timestamp of the most recently completed
	// task, and false if none has completed yet.
	LastProcessed func() (time.Time, bool)
}

// Server wires o11y's health registry and Stats into a gin engine.
type Server struct {
	Health    *o11y.HealthRegistry
	Stats     Stats
	StartedAt time.Time
	Logger    *slog.Logger
}

// New builds a Server with StartedAt set to now.
func New(health *o11y.HealthRegistry, stats Stats) *Server {
	return &Server{Health: health, Stats: stats, StartedAt: time.Now()}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Engine builds the gin.Engine serving the admin routes, CORS-restricted
// to allowedOrigins (empty means no cross-origin callers are expected —
// this surface is meant for curl/internal dashboards, not browser JS).
func (s *Server) Engine(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", s.handleHealthz)
	r.GET("/status", s.handleStatus)
	return r
}

type checkView struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

type healthResponse struct {
	Status string      `json:"status"`
	Checks []checkView `json:"checks"`
}

// handleHealthz aggregates every registered o11y.HealthChecker: the
// overall status is the worst of any individual check (unhealthy beats
// degraded beats healthy), and the HTTP status code follows suit so a
// simple uptime monitor can alert on non-200 alone.
func (s *Server) handleHealthz(c *gin.Context) {
	var results []o11y.HealthResult
	if s.Health != nil {
		results = s.Health.CheckAll(c.Request.Context())
	}

	overall := o11y.Healthy
	checks := make([]checkView, 0, len(results))
	for _, r := range results {
		checks = append(checks, checkView{Component: r.Component, Status: string(r.Status), Message: r.Message})
		if r.Status == o11y.Unhealthy {
			overall = o11y.Unhealthy
		} else if r.Status == o11y.Degraded && overall != o11y.Unhealthy {
			overall = o11y.Degraded
		}
	}

	code := http.StatusOK
	if overall == o11y.Unhealthy {
		code = http.StatusServiceUnavailable
		s.logger().Warn("adminserver: health check reports unhealthy", "checks", len(checks))
	}
	c.JSON(code, healthResponse{Status: string(overall), Checks: checks})
}

type statusResponse struct {
	Uptime            string `json:"uptime"`
	QueueDepth        *int   `json:"queue_depth,omitempty"`
	LastProcessed     string `json:"last_processed,omitempty"`
	LastProcessedUnix int64  `json:"last_processed_unix,omitempty"`
}

// handleStatus reports queue depth and last-processed time in both a
// humanized form (for a person reading it) and a raw unix timestamp (for
// a script polling it).
func (s *Server) handleStatus(c *gin.Context) {
	resp := statusResponse{Uptime: humanize.Time(s.StartedAt)}

	if s.Stats.QueueDepth != nil {
		depth := s.Stats.QueueDepth()
		resp.QueueDepth = &depth
	}
	if s.Stats.LastProcessed != nil {
		if t, ok := s.Stats.LastProcessed(); ok {
			resp.LastProcessed = humanize.Time(t)
			resp.LastProcessedUnix = t.Unix()
		}
	}
	c.JSON(http.StatusOK, resp)
}
