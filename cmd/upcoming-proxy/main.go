package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/upcoming-client/pkg/cache"
	"github.com/Sternrassler/upcoming-client/pkg/client"
	"github.com/Sternrassler/upcoming-client/pkg/config"
	"github.com/Sternrassler/upcoming-client/pkg/logging"
	"github.com/Sternrassler/upcoming-client/pkg/metrics"
	"github.com/Sternrassler/upcoming-client/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

func main() {
	configPath := flag.String("config", os.Getenv("UPCOMING_CONFIG"), "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Proxy failed")
	}
}

func run(configPath string) error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Setup(cfg.LogConfig())
	logger := logging.NewLogger("upcoming-proxy")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := cfg.NewStore()
	if err != nil {
		return err
	}
	if store != nil {
		if err := pingStore(ctx, store); err != nil {
			logger.Warn().Err(err).Str("backend", store.Name()).Msg("Cache backend not reachable, continuing")
		} else {
			logger.Info().Str("backend", store.Name()).Msg("Connected to cache backend")
		}
	}

	upcoming, err := client.New(cfg.ClientConfig(store))
	if err != nil {
		return err
	}
	defer upcoming.Close()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(upcoming, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Listen).Str("host", cfg.Host).Msg("Starting Upcoming proxy server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func pingStore(ctx context.Context, store cache.Store) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	switch s := store.(type) {
	case *cache.RedisStore:
		return s.Ping(ctx)
	case *cache.MemcacheStore:
		return s.Ping()
	default:
		return nil
	}
}

func newRouter(upcoming *client.Client, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/api/{namespace}/{method}", callHandler(upcoming))

	return r
}

// requestID tags each request with an ID and a request-scoped logger.
func requestID(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			reqLogger := logger.With().Str("request_id", id).Logger()
			next.ServeHTTP(w, r.WithContext(reqLogger.WithContext(r.Context())))
		})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func callHandler(upcoming *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace := chi.URLParam(r, "namespace")
		method := chi.URLParam(r, "method")
		logger := zerolog.Ctx(r.Context())

		params := make(client.Params)
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		result, err := upcoming.Namespace(namespace).Call(r.Context(), method, params)
		if err != nil {
			status, body := errorResponse(err)
			logger.Warn().Err(err).
				Str("namespace", namespace).
				Str("method", method).
				Int("status_code", status).
				Msg("Upcoming call failed")
			writeJSON(w, status, body)
			return
		}

		logger.Debug().
			Str("namespace", namespace).
			Str("method", method).
			Int("count", result.Count).
			Msg("Upcoming call served")
		writeJSON(w, http.StatusOK, result)
	}
}

func errorResponse(err error) (int, errorBody) {
	var apiErr *client.APIError
	var transportErr *client.TransportError
	var decodeErr *response.DecodeError

	switch {
	case errors.As(err, &apiErr):
		return http.StatusUnprocessableEntity, errorBody{Error: apiErr.Message, Code: apiErr.Code}
	case errors.As(err, &transportErr), errors.As(err, &decodeErr):
		return http.StatusBadGateway, errorBody{Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
