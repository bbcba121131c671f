package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const checkTimeout = 5 * time.Second

// CheckFunc проверяет одну зависимость сервиса
type CheckFunc func(ctx context.Context) error

type Server struct {
	server *http.Server
}

// NewServer поднимает /health (процесс жив), /healthcheck (зависимости
// доступны) и /metrics. gatherer может быть nil, тогда /metrics не нужен.
func NewServer(addr string, gatherer prometheus.Gatherer, checks map[string]CheckFunc) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           newMux(gatherer, checks),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func newMux(gatherer prometheus.Gatherer, checks map[string]CheckFunc) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("/healthcheck", fullHealthHandler(checks))

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   string            `json:"time"`
}

func fullHealthHandler(checks map[string]CheckFunc) http.Handler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rep := report{
			Status: "ok",
			Checks: make(map[string]string, len(names)),
			Time:   time.Now().UTC().Format(time.RFC3339),
		}

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := checks[name](ctx)
			cancel()

			if err != nil {
				rep.Status = "fail"
				rep.Checks[name] = "error: " + err.Error()
				continue
			}
			rep.Checks[name] = "ok"
		}

		code := http.StatusOK
		if rep.Status != "ok" {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(rep); err != nil {
			slog.Warn("Failed to write health report", "error", err)
		}
	})
}

func (s *Server) Start() error {
	slog.Info("Health HTTP server started", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
