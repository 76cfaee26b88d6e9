package yahoo_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"go.uber.org/zap"

	"stockdash/internal/upstream/yahoo"
)

const chartBodyBasic = `{"chart":{"result":[{
	"meta":{"regularMarketPrice":102.5,"chartPreviousClose":100.0,"regularMarketDayHigh":103.0,"regularMarketDayLow":99.5},
	"timestamp":[1,2,3],
	"indicators":{"quote":[{
		"open":[null,100.2,100.4],
		"high":[101.0,102.0,103.0],
		"low":[99.0,98.0,97.0],
		"close":[100.0,101.0,102.5]
	}]}
}],"error":null}}`

// fakeUpstream serves the three collaborator endpoints: the cookie landing
// page, the crumb issuer and the chart API.
type fakeUpstream struct {
	srv *httptest.Server

	mu              sync.Mutex
	crumbHits       int
	chartHits       int
	crumbStatus     int   // 0 means 200
	chartStatuses   []int // consumed in order, the last one repeats; empty means 200
	chartBody       string
	lastCrumbCookie string
	lastChartCookie string
	lastChartPath   string
	lastChartQuery  url.Values
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	f := &fakeUpstream{chartBody: chartBodyBasic}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/test/getcrumb", f.handleCrumb)
	mux.HandleFunc("/v8/finance/chart/", f.handleChart)
	mux.HandleFunc("/", f.handleLanding)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) auth() *yahoo.Authenticator {
	return yahoo.NewAuthenticator(f.srv.Client(), f.srv.URL+"/", f.srv.URL+"/v1/test/getcrumb", "stockdash-test", zap.NewNop())
}

func (f *fakeUpstream) client() *yahoo.Client {
	return yahoo.NewClient(
		yahoo.WithHTTPClient(f.srv.Client()),
		yahoo.WithBaseURL(f.srv.URL),
		yahoo.WithUserAgent("stockdash-test"),
		yahoo.WithTokenSource(f.auth()),
	)
}

func (f *fakeUpstream) handleLanding(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Set-Cookie", "A3=abc; Path=/; Domain=.example.com; Secure")
	w.Header().Add("Set-Cookie", "B=def; Path=/")
	w.WriteHeader(http.StatusOK)
}

func (f *fakeUpstream) handleCrumb(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.crumbHits++
	n := f.crumbHits
	f.lastCrumbCookie = r.Header.Get("Cookie")
	status := f.crumbStatus
	f.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	// Surrounding whitespace on purpose; the client must trim it.
	_, _ = io.WriteString(w, fmt.Sprintf("\ttest-crumb-%d\n", n))
}

func (f *fakeUpstream) handleChart(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.chartHits++
	f.lastChartCookie = r.Header.Get("Cookie")
	f.lastChartPath = r.URL.Path
	f.lastChartQuery = r.URL.Query()
	status := http.StatusOK
	if len(f.chartStatuses) > 0 {
		status = f.chartStatuses[0]
		if len(f.chartStatuses) > 1 {
			f.chartStatuses = f.chartStatuses[1:]
		}
	}
	body := f.chartBody
	f.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	_, _ = io.WriteString(w, body)
}

func (f *fakeUpstream) counts() (crumb, chart int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.crumbHits, f.chartHits
}
