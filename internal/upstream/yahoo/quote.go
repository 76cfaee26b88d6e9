package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Quote is a normalized real-time quote for one instrument.
type Quote struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previousClose"`
	IsUp          bool    `json:"isUp"`
	Timestamp     string  `json:"timestamp"`
}

// Quote fetches a real-time quote for symbol. A 401/403 from the chart
// endpoint is treated as an expired session: the token is re-acquired and the
// fetch retried exactly once. A second auth failure gives up with
// ErrAuthUnavailable rather than looping.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	return c.quote(ctx, symbol, false)
}

func (c *Client) quote(ctx context.Context, symbol string, retried bool) (*Quote, error) {
	sess, err := c.auth.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	result, err := c.fetchChart(ctx, sess, symbol, "1d", "1d")
	if err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) && (ue.Status == http.StatusUnauthorized || ue.Status == http.StatusForbidden) {
			if retried {
				return nil, fmt.Errorf("%w: still %d after refresh", ErrAuthUnavailable, ue.Status)
			}
			c.log.Info("session token rejected, refreshing", zap.String("symbol", symbol), zap.Int("status", ue.Status))
			// The refresh result is deliberately ignored; the retry surfaces
			// whatever state we end up in.
			_, _ = c.auth.Refresh(ctx)
			return c.quote(ctx, symbol, true)
		}
		return nil, err
	}

	return buildQuote(result, time.Now().UTC())
}

// buildQuote normalizes one chart result. The previous-close fallback chain
// (chartPreviousClose, previousClose, current price) is client-visible
// behavior: with neither close field present the quote degrades to zero
// change, and that order must not be rearranged.
func buildQuote(r *chartResult, now time.Time) (*Quote, error) {
	if r.Meta.RegularMarketPrice == nil {
		return nil, fmt.Errorf("%w: missing regularMarketPrice", ErrMalformedResponse)
	}
	price := *r.Meta.RegularMarketPrice
	bars := r.bars()

	prev := price
	if r.Meta.ChartPreviousClose != nil {
		prev = *r.Meta.ChartPreviousClose
	} else if r.Meta.PreviousClose != nil {
		prev = *r.Meta.PreviousClose
	}

	high := price
	if r.Meta.RegularMarketDayHigh != nil {
		high = *r.Meta.RegularMarketDayHigh
	} else if v := maxNonNil(bars.High); v != nil {
		high = *v
	}

	low := price
	if r.Meta.RegularMarketDayLow != nil {
		low = *r.Meta.RegularMarketDayLow
	} else if v := minNonNil(bars.Low); v != nil {
		low = *v
	}

	open := price
	if v := firstNonNil(bars.Open); v != nil {
		open = *v
	}

	change := price - prev
	changePercent := 0.0
	if prev != 0 {
		changePercent = change / prev * 100
	}

	return &Quote{
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		High:          high,
		Low:           low,
		Open:          open,
		PreviousClose: prev,
		IsUp:          price >= prev,
		Timestamp:     now.Format(time.RFC3339),
	}, nil
}
