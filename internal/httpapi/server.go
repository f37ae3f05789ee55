package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/cache"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/service"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

// ControllerGateway is the cache-through view of the controller gateway.
type ControllerGateway interface {
	DeviceRaw(ctx context.Context, controllerID uint32) (jsonpkg.RawMessage, error)
	InvalidateController(controllerID uint32) int
}

type Dependencies struct {
	Logger logrus.FieldLogger
	Addr   string

	Registry   *service.ControllerRegistry
	Reconciler *service.EventReconciler
	Events     *service.EventsView
	Archive    *service.Archive
	EventLog   store.EventLogStore
	Gateway    ControllerGateway
	Cache      *cache.Store
	Metrics    prometheus.Gatherer

	RateLimitPerMinute int // 0 disables
}

type Server struct {
	httpServer *http.Server
	logger     logrus.FieldLogger
	mux        *http.ServeMux

	registry   *service.ControllerRegistry
	reconciler *service.EventReconciler
	events     *service.EventsView
	archive    *service.Archive
	eventLog   store.EventLogStore
	gateway    ControllerGateway
	cache      *cache.Store
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:     d.Logger.WithField("component", "http"),
		mux:        mux,
		registry:   d.Registry,
		reconciler: d.Reconciler,
		events:     d.Events,
		archive:    d.Archive,
		eventLog:   d.EventLog,
		gateway:    d.Gateway,
		cache:      d.Cache,
	}

	mux.HandleFunc("GET /healthz", handleHealthz)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /v1/controllers", s.handleListControllers)
	mux.HandleFunc("GET /v1/controllers/{id}", s.handleControllerStatus)
	mux.HandleFunc("POST /v1/controllers/{id}/reconcile", s.handleReconcileOne)
	mux.HandleFunc("GET /v1/controllers/{id}/events", s.handleEventsPage)
	mux.HandleFunc("GET /v1/controllers/{id}/events/last", s.handleLastEvent)
	mux.HandleFunc("POST /v1/controllers/{id}/cache/invalidate", s.handleInvalidateController)
	mux.HandleFunc("POST /v1/reconcile", s.handleReconcileAll)

	mux.HandleFunc("GET /v1/events", s.handleQueryEvents)
	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("POST /v1/import", s.handleImport)

	mux.HandleFunc("GET /v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("DELETE /v1/cache", s.handleClearCache)
	mux.HandleFunc("DELETE /v1/cache/{key}", s.handleInvalidateKey)
	mux.HandleFunc("POST /v1/cache/invalidate", s.handleInvalidatePattern)

	var handler http.Handler = mux
	if d.RateLimitPerMinute > 0 {
		handler = httprate.LimitByIP(d.RateLimitPerMinute, time.Minute)(handler)
	}
	handler = loggingMiddleware(s.logger, handler)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
