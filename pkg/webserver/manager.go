package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"f1replaybot/log"
)

const DefaultAddr = ":8080"

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

type Manager struct {
	r      *mux.Router
	addr   string
	health HealthChecker
	l      *log.Logger
}

func NewManager(addr string, health HealthChecker) *Manager {
	if addr == "" {
		addr = DefaultAddr
	}
	m := &Manager{
		r:      mux.NewRouter(),
		addr:   addr,
		health: health,
		l:      log.Default().Named("webserver"),
	}

	m.rootHandlers()
	return m
}

func (m *Manager) Router() *mux.Router {
	return m.r
}

func (m *Manager) rootHandlers() {
	m.r.HandleFunc("/healthz", m.healthHandler).Methods(http.MethodGet)
	m.r.HandleFunc("/", m.indexHandler).Methods(http.MethodGet)
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
}

func (m *Manager) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if m.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := m.health(ctx); err != nil {
			resp = healthResponse{Status: "degraded", Backend: err.Error()}
			code = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *Manager) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, route := range m.Routes() {
		_, _ = w.Write([]byte(route + "\n"))
	}
}

// Routes lists the path templates of every registered route.
func (m *Manager) Routes() []string {
	var routes []string
	_ = m.r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		if methods, err := route.GetMethods(); err == nil {
			pathTemplate = strings.Join(methods, ",") + " " + pathTemplate
		}
		routes = append(routes, pathTemplate)
		return nil
	})
	return routes
}

// Serve listens until ctx is cancelled and then shuts down gracefully.
func (m *Manager) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         m.addr,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      m.r,
	}

	errc := make(chan error, 1)
	go func() {
		m.l.Info("webserver listening", log.String("addr", m.addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.l.Info("webserver shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
