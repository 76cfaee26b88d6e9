package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Session is the cookie/crumb pair that authorizes chart requests. It is
// replaced wholesale on every successful acquisition; staleness is only ever
// detected by a 401/403 from the upstream.
type Session struct {
	Cookie string
	Crumb  string
}

// TokenSource yields the current session, acquiring one when none exists, and
// can be forced to re-acquire.
type TokenSource interface {
	Token(ctx context.Context) (Session, error)
	Refresh(ctx context.Context) (Session, error)
}

// CrumbError reports a failed crumb request during session acquisition.
type CrumbError struct {
	Status int
}

func (e *CrumbError) Error() string {
	return fmt.Sprintf("crumb request failed: status %d", e.Status)
}

// Authenticator performs the two-step handshake against the provider: hit the
// landing endpoint to collect session cookies, then exchange them for a crumb.
// At most one session exists at a time; concurrent refreshes are coalesced so
// two fetchers that both see an expired token trigger a single handshake.
type Authenticator struct {
	client    HTTPClient
	cookieURL string
	crumbURL  string
	userAgent string
	log       *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	session *Session
}

// NewAuthenticator builds an Authenticator. client must not follow redirects:
// the landing endpoint answers with a redirect whose Set-Cookie headers are
// the whole point of the request (see httpx.NoRedirects).
func NewAuthenticator(client HTTPClient, cookieURL, crumbURL, userAgent string, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{
		client:    client,
		cookieURL: cookieURL,
		crumbURL:  crumbURL,
		userAgent: userAgent,
		log:       log,
	}
}

// Token returns the current session, acquiring one lazily on first use.
func (a *Authenticator) Token(ctx context.Context) (Session, error) {
	a.mu.RLock()
	s := a.session
	a.mu.RUnlock()
	if s != nil {
		return *s, nil
	}
	return a.Refresh(ctx)
}

// Refresh forces a new acquisition and overwrites the stored session on
// success. Callers decide whether and when to call it again on failure.
func (a *Authenticator) Refresh(ctx context.Context) (Session, error) {
	v, err, _ := a.group.Do("refresh", func() (any, error) {
		return a.acquire(ctx)
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

func (a *Authenticator) acquire(ctx context.Context) (Session, error) {
	cookie, err := a.fetchCookies(ctx)
	if err != nil {
		a.log.Warn("cookie request failed", zap.Error(err))
		return Session{}, err
	}

	crumb, err := a.fetchCrumb(ctx, cookie)
	if err != nil {
		a.log.Warn("crumb request failed", zap.Error(err))
		return Session{}, err
	}

	sess := Session{Cookie: cookie, Crumb: crumb}
	a.mu.Lock()
	a.session = &sess
	a.mu.Unlock()
	a.log.Info("session token acquired")
	return sess, nil
}

func (a *Authenticator) fetchCookies(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cookieURL, nil)
	if err != nil {
		return "", fmt.Errorf("cookie request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cookie request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Keep only the name=value pair of each Set-Cookie; attributes like Path
	// or Expires do not belong in a Cookie header.
	var pairs []string
	for _, sc := range resp.Header.Values("Set-Cookie") {
		nv, _, _ := strings.Cut(sc, ";")
		nv = strings.TrimSpace(nv)
		if nv != "" {
			pairs = append(pairs, nv)
		}
	}
	return strings.Join(pairs, "; "), nil
}

func (a *Authenticator) fetchCrumb(ctx context.Context, cookie string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.crumbURL, nil)
	if err != nil {
		return "", fmt.Errorf("crumb request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Cookie", cookie)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("crumb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &CrumbError{Status: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	if err != nil {
		return "", fmt.Errorf("crumb body: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
