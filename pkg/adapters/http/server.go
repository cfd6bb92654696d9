package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/forge"
	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/instance"
	"github.com/aretw0/forge/pkg/registry"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Host is the read side of the scheduler.
type Host interface {
	Instances() []*instance.Instance
	Instance(id string) (*instance.Instance, error)
}

// Catalog lists constructible block types.
type Catalog interface {
	SupportedBlockTypeIDs() []string
	RegistryFor(typeID string) (*registry.Registry, error)
}

// Server exposes instances, block types and metrics over HTTP.
type Server struct {
	Host    Host
	Catalog Catalog
	Streams *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves gatherer on /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStreams shares a StreamManager, usually one already subscribed to blocks.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.Streams = sm
		}
	}
}

// NewServer creates a server. Its Streams field is a domain.StateChangeListener
// to subscribe to blocks for the /events stream.
func NewServer(host Host, catalog Catalog, opts ...Option) *Server {
	s := &Server{
		Host:     host,
		Catalog:  catalog,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/types", s.ListTypes)
	r.Get("/instances", s.ListInstances)
	r.Get("/instances/{id}", s.GetInstance)
	r.Get("/events", s.SubscribeEvents)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return enableCORS(r)
}

// NewHandler creates a new HTTP handler for the host.
func NewHandler(host Host, catalog Catalog, opts ...Option) http.Handler {
	return NewServer(host, catalog, opts...).Handler()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TypeInfo describes a constructible block type.
type TypeInfo struct {
	TypeID        string           `json:"type_id"`
	EngineVersion string           `json:"engine_version"`
	Params        []registry.Param `json:"params"`
}

// InstanceSummary is one entry of GET /instances.
type InstanceSummary struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	State domain.RunnableState `json:"state"`
	Tick  int                  `json:"tick"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":            "forge-http",
		"version":        strings.TrimSpace(forge.Version),
		"engine_version": forge.EngineVersion,
	})
}

// ListTypes handles the GET /types request.
func (s *Server) ListTypes(w http.ResponseWriter, r *http.Request) {
	ids := s.Catalog.SupportedBlockTypeIDs()
	out := make([]TypeInfo, 0, len(ids))
	for _, id := range ids {
		reg, err := s.Catalog.RegistryFor(id)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, "ListTypes failed", err)
			return
		}
		params, err := reg.Params(id)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, "ListTypes failed", err)
			return
		}
		out = append(out, TypeInfo{TypeID: id, EngineVersion: reg.ExpectedEngineVersion(), Params: params})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// ListInstances handles the GET /instances request.
func (s *Server) ListInstances(w http.ResponseWriter, r *http.Request) {
	insts := s.Host.Instances()
	out := make([]InstanceSummary, 0, len(insts))
	for _, inst := range insts {
		out = append(out, InstanceSummary{ID: inst.ID(), Name: inst.Name(), State: inst.State(), Tick: inst.Ticks()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetInstance handles the GET /instances/{id} request.
func (s *Server) GetInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.Host.Instance(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrInstanceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.fail(w, http.StatusInternalServerError, "GetInstance failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, inst.Snapshot())
}

// SubscribeEvents handles the GET /events request (SSE).
// An optional block_id query parameter narrows the stream to one block.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	filter := r.URL.Query().Get("block_id")
	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if filter != "" && e.BlockID != filter {
				continue
			}
			payload, err := json.Marshal(e)
			if err != nil {
				s.logger.Warn("SSE: encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), status)
	s.logger.Error(msg, "err", err)
}

// StreamManager fans block transitions out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan domain.StateChangeEvent]struct{}
	logger      *slog.Logger
}

var _ domain.StateChangeListener = (*StreamManager)(nil)

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[chan domain.StateChangeEvent]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe() (<-chan domain.StateChangeEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan domain.StateChangeEvent, 16)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// OnStateChanged broadcasts e. Slow subscribers miss events instead of
// blocking the block that changed state.
func (sm *StreamManager) OnStateChanged(_ context.Context, e domain.StateChangeEvent) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- e:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping event", "block_id", e.BlockID)
		}
	}
	return nil
}

// Subscribers returns the number of open streams.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}
