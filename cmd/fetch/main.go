// Command fetch is an ad-hoc CLI that prints quotes (and optionally history)
// for a list of symbols as JSON, using the same upstream client as the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"stockdash/internal/config"
	"stockdash/internal/httpx"
	"stockdash/internal/upstream/yahoo"
)

func main() {
	var symbolsCSV string
	var rng string
	var withHistory bool
	var timeout int
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL"), "comma-separated instrument symbols")
	flag.StringVar(&rng, "range", "1d", "history range (1d,5d,1mo,3mo,6mo,1y)")
	flag.BoolVar(&withHistory, "history", false, "also fetch closing-price history")
	flag.IntVar(&timeout, "timeout", 15, "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	auth := yahoo.NewAuthenticator(
		httpx.NoRedirects(httpClient),
		cfg.Upstream.CookieURL,
		cfg.Upstream.BaseURL+"/v1/test/getcrumb",
		cfg.Upstream.UserAgent,
		zap.NewNop(),
	)
	client := yahoo.NewClient(
		yahoo.WithHTTPClient(httpClient),
		yahoo.WithBaseURL(cfg.Upstream.BaseURL),
		yahoo.WithUserAgent(cfg.Upstream.UserAgent),
		yahoo.WithTokenSource(auth),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec+30)*time.Second)
	defer cancel()

	type row struct {
		Symbol  string               `json:"symbol"`
		Quote   *yahoo.Quote         `json:"quote,omitempty"`
		History []yahoo.HistoryPoint `json:"history,omitempty"`
		Error   string               `json:"error,omitempty"`
	}

	var rows []row
	for _, sym := range splitCSV(symbolsCSV) {
		rw := row{Symbol: sym}
		if q, err := client.Quote(ctx, sym); err != nil {
			rw.Error = err.Error()
		} else {
			rw.Quote = q
		}
		if withHistory && rw.Error == "" {
			if pts, err := client.History(ctx, sym, rng); err != nil {
				rw.Error = err.Error()
			} else {
				rw.History = pts
			}
		}
		rows = append(rows, rw)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
