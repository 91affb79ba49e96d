package notifier

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"FinanceETL/internal/model"
	"FinanceETL/internal/pipeline"
	"FinanceETL/internal/warehouse"

	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottoken-1/sendMessage", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "42", payload["chat_id"])
		require.Equal(t, "HTML", payload["parse_mode"])
		require.Equal(t, "hello", payload["text"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token-1", "42", srv.URL, "")
	require.NoError(t, tn.Send(t.Context(), "hello"))
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("t", "1", srv.URL, "")
	tn.Backoff = time.Millisecond

	require.NoError(t, tn.SendWithRetry(t.Context(), "report", 3))
	require.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("t", "1", srv.URL, "")
	tn.Backoff = time.Millisecond

	err := tn.SendWithRetry(t.Context(), "report", 1)
	require.ErrorContains(t, err, "all 2 retries exhausted")
	require.ErrorContains(t, err, "status 400")
}

func TestPollOnce(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			require.Equal(t, "7", r.URL.Query().Get("offset"))
			_, _ = w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /status ","chat":{"id":42}}},
				{"update_id":8,"message":{"text":"/run","chat":{"id":999}}},
				{"update_id":9}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			mu.Lock()
			sent = append(sent, payload["text"])
			mu.Unlock()
		}
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("t", "42", srv.URL, "")

	var commands []string
	next, err := tn.pollOnce(t.Context(), 7, 0, func(cmd string) string {
		commands = append(commands, cmd)
		return "reply to " + cmd
	})
	require.NoError(t, err)
	require.Equal(t, 10, next)
	require.Equal(t, []string{"/status"}, commands)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"reply to /status"}, sent)
}

func TestFormatRunReport(t *testing.T) {
	start, _ := model.ParseDate("2023-01-01")
	end, _ := model.ParseDate("2023-01-02")
	res := &pipeline.Result{
		RunID:  "0f8fad5b-d9cb-469f-a165-70867728950e",
		Status: pipeline.StatusPartial,
		Params: pipeline.Params{Ticker: "AAPL", TargetCurrency: "EUR", Start: start, End: end},
		Stages: []pipeline.StageResult{
			{Name: pipeline.StageExtractStocks, Status: pipeline.StatusOK, Rows: 2},
			{Name: pipeline.StageExtractFx, Status: pipeline.StatusPartial, Err: errors.New("x"), Issues: []string{"frankfurter: no_data: <none>"}},
			{Name: pipeline.StageLoad, Status: pipeline.StatusOK, Rows: 2},
		},
		FactsWritten: 2,
		Rejected:     []warehouse.RejectedRow{{Reason: "unresolved date_key"}},
		StartedAt:    time.Unix(0, 0),
		FinishedAt:   time.Unix(2, 0),
	}

	msg := FormatRunReport(res)

	require.Contains(t, msg, "<b>FinanceETL partial</b> | AAPL")
	require.Contains(t, msg, "Range: 2023-01-01 → 2023-01-02")
	require.Contains(t, msg, "Currency: USD → EUR")
	require.Contains(t, msg, "Facts written: 2")
	require.Contains(t, msg, "Rejected rows: 1")
	require.Contains(t, msg, "extract_stocks: 2 rows")
	require.Contains(t, msg, "extract_fx: frankfurter: no_data: &lt;none&gt;")
	require.Contains(t, msg, "Run 0f8fad5b in 2s")
}
