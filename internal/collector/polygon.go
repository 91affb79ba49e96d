package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"FinanceETL/internal/model"

	"github.com/shopspring/decimal"
)

const DefaultPolygonBaseURL = "https://api.polygon.io/v2"

// PolygonFetcher implements StockFetcher using the Polygon aggregates API.
type PolygonFetcher struct {
	BaseURL string
	APIKey  string
	Client  HTTPClient
}

// NewPolygonFetcher creates a fetcher. An empty baseURL selects DefaultPolygonBaseURL.
func NewPolygonFetcher(baseURL, apiKey string, client HTTPClient) *PolygonFetcher {
	if baseURL == "" {
		baseURL = DefaultPolygonBaseURL
	}
	return &PolygonFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  client,
	}
}

func (f *PolygonFetcher) Name() string { return "polygon" }

// polygonAggs is the response structure of the aggregates endpoint.
type polygonAggs struct {
	Ticker       string        `json:"ticker"`
	Status       string        `json:"status"`
	ResultsCount int           `json:"resultsCount"`
	Results      *[]polygonBar `json:"results"`
	Error        string        `json:"error"`
}

type polygonBar struct {
	T  int64               `json:"t"`
	O  decimal.NullDecimal `json:"o"`
	H  decimal.NullDecimal `json:"h"`
	L  decimal.NullDecimal `json:"l"`
	C  decimal.NullDecimal `json:"c"`
	V  float64             `json:"v"`
	VW decimal.NullDecimal `json:"vw"`
}

func (f *PolygonFetcher) endpoint(ticker string, start, end time.Time) string {
	q := url.Values{}
	q.Set("adjusted", "true")
	q.Set("sort", "asc")
	q.Set("limit", "50000")
	q.Set("apiKey", f.APIKey)
	return fmt.Sprintf("%s/aggs/ticker/%s/range/1/day/%s/%s?%s",
		f.BaseURL, url.PathEscape(ticker), model.DateKey(start), model.DateKey(end), q.Encode())
}

// FetchDailyBars returns one bar per trading day in [start, end]. Responses
// flagged DELAYED are accepted as long as they carry results. On failure it
// returns nil and a *FetchError.
func (f *PolygonFetcher) FetchDailyBars(ctx context.Context, ticker string, start, end time.Time) ([]model.StockBar, error) {
	bars, err := f.fetch(ctx, ticker, start, end)
	if err != nil {
		log.Printf("[WARN] polygon fetch %s %s..%s: %v", ticker, model.DateKey(start), model.DateKey(end), err)
		return nil, err
	}
	log.Printf("[INFO] polygon: %d bars for %s", len(bars), ticker)
	return bars, nil
}

func (f *PolygonFetcher) fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.StockBar, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, &FetchError{Provider: f.Name(), Kind: KindRequest, Err: fmt.Errorf("ticker is required")}
	}
	if end.Before(start) {
		return nil, &FetchError{Provider: f.Name(), Kind: KindRequest,
			Err: fmt.Errorf("start %s after end %s", model.DateKey(start), model.DateKey(end))}
	}

	body, err := getJSON(ctx, f.Client, f.Name(), f.endpoint(ticker, start, end), f.APIKey)
	if err != nil {
		return nil, err
	}

	var aggs polygonAggs
	if err := json.Unmarshal(body, &aggs); err != nil {
		return nil, &FetchError{Provider: f.Name(), Kind: KindDecode, Err: err}
	}
	if aggs.Results == nil {
		err := ErrNoData
		if aggs.Error != "" {
			err = fmt.Errorf("%w: %s", ErrNoData, aggs.Error)
		}
		return nil, &FetchError{Provider: f.Name(), Kind: KindNoData, Err: err}
	}

	bars := make([]model.StockBar, 0, len(*aggs.Results))
	for _, r := range *aggs.Results {
		var date time.Time
		if r.T != 0 {
			date = model.TruncateDay(time.UnixMilli(r.T))
		}
		bars = append(bars, model.StockBar{
			Date:   date,
			Ticker: ticker,
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: int64(r.V),
			VWAP:   r.VW,
		})
	}
	return bars, nil
}
