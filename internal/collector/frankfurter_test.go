package collector_test

import (
	"errors"
	"net/http"
	"testing"

	"FinanceETL/internal/collector"
	"FinanceETL/internal/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const frankfurterBody = `{
	"amount": 1.0,
	"base": "USD",
	"start_date": "2023-01-02",
	"end_date": "2023-01-03",
	"rates": {
		"2023-01-03": {"GBP": 0.83, "EUR": 0.94},
		"2023-01-02": {"EUR": 0.93, "GBP": 0.82}
	}
}`

func TestFrankfurterFetchRates(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/2023-01-02..2023-01-03", req.URL.Path)
			require.Equal(t, "USD", req.URL.Query().Get("base"))
			require.Equal(t, "EUR,GBP", req.URL.Query().Get("symbols"))
			return jsonResponse(http.StatusOK, frankfurterBody), nil
		}).
		Times(1)

	fetcher := collector.NewFrankfurterFetcher("https://fx.example.test", httpClient)

	// Act
	rates, err := fetcher.FetchRates(t.Context(), "usd", mustDate(t, "2023-01-02"), mustDate(t, "2023-01-03"), []string{"eur", " GBP"})

	// Assert: 2 dates x 2 currencies, ordered by date then code
	require.NoError(t, err)
	require.Len(t, rates, 4)

	want := []struct{ date, code, rate string }{
		{"2023-01-02", "EUR", "0.93"},
		{"2023-01-02", "GBP", "0.82"},
		{"2023-01-03", "EUR", "0.94"},
		{"2023-01-03", "GBP", "0.83"},
	}
	for i, w := range want {
		require.Equal(t, w.date, model.DateKey(rates[i].Date))
		require.Equal(t, "USD", rates[i].BaseCurrency)
		require.Equal(t, w.code, rates[i].TargetCurrency)
		require.Equal(t, w.rate, rates[i].Rate.Decimal.String())
	}
}

func TestFrankfurterFetchRates_BaseFallsBackToRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Empty(t, req.URL.Query().Get("symbols"))
			return jsonResponse(http.StatusOK, `{"rates":{"2023-01-02":{"JPY":131.2}}}`), nil
		}).
		Times(1)

	fetcher := collector.NewFrankfurterFetcher("", httpClient)
	rates, err := fetcher.FetchRates(t.Context(), "USD", mustDate(t, "2023-01-02"), mustDate(t, "2023-01-02"), nil)

	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.Equal(t, "USD", rates[0].BaseCurrency)
	require.Equal(t, "JPY", rates[0].TargetCurrency)
}

func TestFrankfurterFetchRates_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resp     *http.Response
		err      error
		wantKind collector.ErrorKind
	}{
		{"empty rates", jsonResponse(http.StatusOK, `{"base":"USD","rates":{}}`), nil, collector.KindNoData},
		{"missing rates", jsonResponse(http.StatusOK, `{"base":"USD"}`), nil, collector.KindNoData},
		{"not found", jsonResponse(http.StatusNotFound, `{"message":"not found"}`), nil, collector.KindStatus},
		{"bad date key", jsonResponse(http.StatusOK, `{"rates":{"yesterday":{"EUR":0.9}}}`), nil, collector.KindDecode},
		{"transport", nil, errors.New("timeout"), collector.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().Do(gomock.Any()).Return(tt.resp, tt.err).Times(1)

			fetcher := collector.NewFrankfurterFetcher("", httpClient)
			rates, err := fetcher.FetchRates(t.Context(), "USD", mustDate(t, "2023-01-02"), mustDate(t, "2023-01-03"), []string{"EUR"})

			require.Error(t, err)
			require.Nil(t, rates)
			require.Equal(t, tt.wantKind, collector.KindOf(err))
			if tt.wantKind == collector.KindNoData {
				require.ErrorIs(t, err, collector.ErrNoData)
			}
		})
	}
}
