package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"stockdash/internal/market"
	"stockdash/internal/upstream/yahoo"
)

type server struct {
	svc *market.Service
	log *zap.Logger
}

func newRouter(svc *market.Service, staticDir string, log *zap.Logger) http.Handler {
	s := &server{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(limitBody)
	r.Use(corsJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/quote/{symbol}", s.handleQuote)
	r.Post("/api/batch", s.handleBatch)
	r.Get("/api/history/{symbol}", s.handleHistory)

	if staticDir != "" {
		if _, err := os.Stat(staticDir); err == nil {
			r.Handle("/*", http.FileServer(http.Dir(staticDir)))
		}
	}
	return r
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	q, err := s.svc.Quote(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type batchRequest struct {
	Symbols []string `json:"symbols"`
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, market.ErrNoSymbols.Error())
		return
	}

	results, err := s.svc.Batch(r.Context(), body.Symbols)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := make(map[string]any, len(results))
	for sym, res := range results {
		if res.Err != nil {
			out[sym] = map[string]string{"error": res.Err.Error()}
			continue
		}
		out[sym] = res.Quote
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = yahoo.Range1d
	}
	points, err := s.svc.History(r.Context(), symbol, rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// corsJSON opens the API to the browser frontend and answers preflights.
func corsJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
