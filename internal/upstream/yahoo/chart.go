package yahoo

// chartResponse mirrors the chart API payload. Per-bar values are pointers:
// the upstream emits JSON nulls for bars with no trade data, and those must
// be distinguishable from a real zero.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	PreviousClose        *float64 `json:"previousClose"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
}

type indicators struct {
	Quote []quoteBars `json:"quote"`
}

type quoteBars struct {
	Open  []*float64 `json:"open"`
	High  []*float64 `json:"high"`
	Low   []*float64 `json:"low"`
	Close []*float64 `json:"close"`
}

// bars returns the first quote series, or an empty one when absent.
func (r *chartResult) bars() quoteBars {
	if len(r.Indicators.Quote) == 0 {
		return quoteBars{}
	}
	return r.Indicators.Quote[0]
}

func firstNonNil(vals []*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func maxNonNil(vals []*float64) *float64 {
	var max *float64
	for _, v := range vals {
		if v == nil {
			continue
		}
		if max == nil || *v > *max {
			max = v
		}
	}
	return max
}

func minNonNil(vals []*float64) *float64 {
	var min *float64
	for _, v := range vals {
		if v == nil {
			continue
		}
		if min == nil || *v < *min {
			min = v
		}
	}
	return min
}
