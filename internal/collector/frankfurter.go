package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"FinanceETL/internal/model"

	"github.com/shopspring/decimal"
)

const DefaultFrankfurterBaseURL = "https://api.frankfurter.app"

// FrankfurterFetcher implements RateFetcher using the Frankfurter time-series API.
type FrankfurterFetcher struct {
	BaseURL string
	Client  HTTPClient
}

// NewFrankfurterFetcher creates a fetcher. An empty baseURL selects DefaultFrankfurterBaseURL.
func NewFrankfurterFetcher(baseURL string, client HTTPClient) *FrankfurterFetcher {
	if baseURL == "" {
		baseURL = DefaultFrankfurterBaseURL
	}
	return &FrankfurterFetcher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (f *FrankfurterFetcher) Name() string { return "frankfurter" }

// frankfurterSeries is the response structure of the time-series endpoint.
type frankfurterSeries struct {
	Amount    float64                                   `json:"amount"`
	Base      string                                    `json:"base"`
	StartDate string                                    `json:"start_date"`
	EndDate   string                                    `json:"end_date"`
	Rates     map[string]map[string]decimal.NullDecimal `json:"rates"`
}

func (f *FrankfurterFetcher) endpoint(base string, start, end time.Time, symbols []string) string {
	q := url.Values{}
	q.Set("base", base)
	if len(symbols) > 0 {
		q.Set("symbols", strings.Join(symbols, ","))
	}
	return fmt.Sprintf("%s/%s..%s?%s", f.BaseURL, model.DateKey(start), model.DateKey(end), q.Encode())
}

// FetchRates flattens the time series to one FxRate per (date, currency),
// ordered by date then currency code. On failure it returns nil and a *FetchError.
func (f *FrankfurterFetcher) FetchRates(ctx context.Context, base string, start, end time.Time, symbols []string) ([]model.FxRate, error) {
	rates, err := f.fetch(ctx, base, start, end, symbols)
	if err != nil {
		log.Printf("[WARN] frankfurter fetch %s %s..%s: %v", base, model.DateKey(start), model.DateKey(end), err)
		return nil, err
	}
	log.Printf("[INFO] frankfurter: %d rates for base %s", len(rates), base)
	return rates, nil
}

func (f *FrankfurterFetcher) fetch(ctx context.Context, base string, start, end time.Time, symbols []string) ([]model.FxRate, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, &FetchError{Provider: f.Name(), Kind: KindRequest, Err: fmt.Errorf("base currency is required")}
	}
	if end.Before(start) {
		return nil, &FetchError{Provider: f.Name(), Kind: KindRequest,
			Err: fmt.Errorf("start %s after end %s", model.DateKey(start), model.DateKey(end))}
	}
	codes := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			codes = append(codes, s)
		}
	}

	body, err := getJSON(ctx, f.Client, f.Name(), f.endpoint(base, start, end, codes), "")
	if err != nil {
		return nil, err
	}

	var series frankfurterSeries
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, &FetchError{Provider: f.Name(), Kind: KindDecode, Err: err}
	}
	if len(series.Rates) == 0 {
		return nil, &FetchError{Provider: f.Name(), Kind: KindNoData, Err: ErrNoData}
	}

	respBase := series.Base
	if respBase == "" {
		respBase = base
	}

	dates := make([]string, 0, len(series.Rates))
	for d := range series.Rates {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out []model.FxRate
	for _, d := range dates {
		date, err := model.ParseDate(d)
		if err != nil {
			return nil, &FetchError{Provider: f.Name(), Kind: KindDecode, Err: err}
		}
		byCode := series.Rates[d]
		ccys := make([]string, 0, len(byCode))
		for c := range byCode {
			ccys = append(ccys, c)
		}
		sort.Strings(ccys)
		for _, c := range ccys {
			out = append(out, model.FxRate{
				Date:           date,
				BaseCurrency:   respBase,
				TargetCurrency: c,
				Rate:           byCode[c],
			})
		}
	}
	return out, nil
}
