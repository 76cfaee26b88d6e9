package yahoo

import (
	"context"
	"fmt"
)

// Ranges accepted by the history endpoint.
const (
	Range1d  = "1d"
	Range5d  = "5d"
	Range1mo = "1mo"
	Range3mo = "3mo"
	Range6mo = "6mo"
	Range1y  = "1y"
)

// HistoryPoint is one closing price in a time series.
type HistoryPoint struct {
	Time  int64   `json:"time"`
	Price float64 `json:"price"`
}

// intervalFor maps a requested range to the sampling interval used upstream.
func intervalFor(rng string) string {
	switch rng {
	case Range1d:
		return "5m"
	case Range5d:
		return "15m"
	default:
		return "1d"
	}
}

// History fetches closing prices for symbol over rng, in upstream
// (chronological) order, dropping bars whose close is null. Unlike Quote
// there is no 401 retry here: a token failure is a hard failure.
func (c *Client) History(ctx context.Context, symbol, rng string) ([]HistoryPoint, error) {
	sess, err := c.auth.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	result, err := c.fetchChart(ctx, sess, symbol, rng, intervalFor(rng))
	if err != nil {
		return nil, err
	}

	bars := result.bars()
	points := make([]HistoryPoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(bars.Close) || bars.Close[i] == nil {
			continue
		}
		points = append(points, HistoryPoint{Time: ts, Price: *bars.Close[i]})
	}
	return points, nil
}
