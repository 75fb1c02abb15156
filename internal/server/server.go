package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tckz/go-redis-visits/internal/store"
	"go.uber.org/zap"
)

// StatusMessage accompanies every store failure response.
const StatusMessage = "Redis get key method failure"

// HeaderStatusMessage carries StatusMessage since net/http always writes the standard reason phrase.
const HeaderStatusMessage = "X-Status-Message"

type Visitor interface {
	Visit(ctx context.Context) (int64, error)
}

type ConnState interface {
	State() store.State
}

type RequestObserver interface {
	ObserveRequest(err error)
}

type Server struct {
	visitor  Visitor
	conn     ConnState
	logger   *zap.SugaredLogger
	observer RequestObserver
	metrics  http.Handler
}

type Option func(s *Server)

func WithLogger(logger *zap.SugaredLogger) Option {
	return Option(func(s *Server) {
		s.logger = logger
	})
}

// WithMetrics records request outcomes on o and exposes h at /metrics.
func WithMetrics(o RequestObserver, h http.Handler) Option {
	return Option(func(s *Server) {
		s.observer = o
		s.metrics = h
	})
}

func New(v Visitor, conn ConnState, opts ...Option) *Server {
	s := &Server{
		visitor: v,
		conn:    conn,
		logger:  zap.NewNop().Sugar(),
	}
	for _, e := range opts {
		e(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger), bodyParser())

	r.GET("/healthz", s.healthz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	r.GET("/", s.requireConnected(), s.visit)

	return r
}

func (s *Server) visit(c *gin.Context) {
	prev, err := s.visitor.Visit(c.Request.Context())
	if s.observer != nil {
		s.observer.ObserveRequest(err)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": formatCount(prev)})
}

func (s *Server) healthz(c *gin.Context) {
	st := s.conn.State()
	code := http.StatusOK
	status := "ok"
	if st != store.Connected {
		code = http.StatusServiceUnavailable
		status = "unavailable"
	}
	c.JSON(code, gin.H{"status": status, "store": st.String()})
}

// requireConnected rejects requests before they reach the store when the
// connection is not usable.
func (s *Server) requireConnected() gin.HandlerFunc {
	return func(c *gin.Context) {
		if st := s.conn.State(); st != store.Connected {
			if s.observer != nil {
				s.observer.ObserveRequest(store.ErrNotConnected)
			}
			s.fail(c, store.ErrNotConnected)
			return
		}
		c.Next()
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.With(zap.Error(err), zap.String("requestID", c.GetString(requestIDKey))).Errorf("*** %s", StatusMessage)
	c.Header(HeaderStatusMessage, StatusMessage)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
