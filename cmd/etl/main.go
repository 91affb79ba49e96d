package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"FinanceETL/internal/collector"
	"FinanceETL/internal/config"
	"FinanceETL/internal/httpx"
	"FinanceETL/internal/model"
	"FinanceETL/internal/notifier"
	"FinanceETL/internal/pipeline"
	"FinanceETL/internal/scheduler"
	"FinanceETL/internal/warehouse"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	os.Exit(run())
}

func run() int {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN] load .env: %v", err)
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}

	var (
		configFlag = flag.String("config", cfgPath, "path to the YAML config file")
		ticker     = flag.String("ticker", "", "ticker to extract (overrides polygon.default_ticker)")
		start      = flag.String("start", "", "first date, YYYY-MM-DD (overrides pipeline.default_start_date)")
		end        = flag.String("end", "", "last date, YYYY-MM-DD (overrides pipeline.default_end_date)")
		currency   = flag.String("currency", "", "target currency (overrides pipeline.target_currency)")
		schedule   = flag.Bool("schedule", false, "run on the configured cron schedule until interrupted")
		query      = flag.Bool("query", false, "print stored facts for the ticker and range, then exit")
		mock       = flag.Bool("mock", false, "use generated data instead of the providers")
	)
	flag.Parse()

	log.Println("[INFO] FinanceETL starting...")

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Printf("[FATAL] load config: %v", err)
		return 1
	}
	if *ticker != "" {
		cfg.Polygon.DefaultTicker = strings.ToUpper(*ticker)
	}
	if *start != "" {
		cfg.Pipeline.StartDate = *start
	}
	if *end != "" {
		cfg.Pipeline.EndDate = *end
	}
	if *currency != "" {
		cfg.Pipeline.TargetCurrency = strings.ToUpper(*currency)
	}
	if *mock && cfg.Polygon.APIKey == "" {
		cfg.Polygon.APIKey = "mock"
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[FATAL] config validation: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wh, err := warehouse.Open(ctx, warehouse.Options{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		Timeout: cfg.Database.Timeout,
	})
	if err != nil {
		log.Printf("[FATAL] open warehouse: %v", err)
		return 1
	}
	defer wh.Close()

	if *query {
		return printFacts(ctx, wh, cfg)
	}

	var schema string
	if !cfg.Database.SkipSchema {
		if schema, err = warehouse.DefaultSchema(cfg.Database.Driver); err != nil {
			log.Printf("[FATAL] load schema: %v", err)
			return 1
		}
	}

	var (
		stocks collector.StockFetcher
		rates  collector.RateFetcher
	)
	if *mock {
		stocks = &collector.MockStockFetcher{Price: decimal.NewFromInt(150)}
		rates = &collector.MockRateFetcher{Rate: decimal.RequireFromString("0.92")}
	} else {
		client := httpx.New(cfg.HTTP.Timeout,
			httpx.WithProxy(cfg.Proxy),
			httpx.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.Burst),
			httpx.WithCache(cfg.HTTP.CacheTTL),
		)
		stocks = collector.NewPolygonFetcher(cfg.Polygon.BaseURL, cfg.Polygon.APIKey, client)
		rates = collector.NewFrankfurterFetcher(cfg.Frankfurter.BaseURL, client)
	}
	log.Printf("[INFO] data sources: %s, %s", stocks.Name(), rates.Name())

	p := pipeline.New(stocks, rates, wh, schema)
	runFn := func(ctx context.Context) *pipeline.Result {
		// Dates are resolved per run so scheduled runs follow the calendar.
		from, to, err := cfg.Pipeline.Range(time.Now())
		if err != nil {
			log.Printf("[ERROR] resolve date range: %v", err)
		}
		return p.Run(ctx, pipeline.Params{
			Ticker:         cfg.Polygon.DefaultTicker,
			TargetCurrency: cfg.Pipeline.TargetCurrency,
			Start:          from,
			End:            to,
			FxBase:         cfg.Frankfurter.DefaultBase,
			Symbols:        cfg.Frankfurter.DefaultSymbols,
		})
	}

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.Proxy)
	}

	if !*schedule {
		res := runFn(ctx)
		if tn != nil {
			if err := tn.SendWithRetry(ctx, notifier.FormatRunReport(res), 3); err != nil {
				log.Printf("[ERROR] send run report: %v", err)
			}
		}
		if err := res.Err(); err != nil {
			log.Printf("[ERROR] pipeline failed: %v", err)
			return 1
		}
		return 0
	}

	var n scheduler.Notifier
	if tn != nil {
		n = tn
	}
	sched := scheduler.NewScheduler(ctx, runFn, n, cfg.Schedule.Retries, cfg.Schedule.RetryDelay)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Printf("[FATAL] %v", err)
		return 1
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}
	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] run_on_start enabled, executing pipeline now")
		go sched.RunNow()
	}

	log.Println("[INFO] FinanceETL is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Println("[INFO] shutdown signal received, stopping...")
	return 0
}

func printFacts(ctx context.Context, wh *warehouse.Loader, cfg *config.Config) int {
	from, to, err := cfg.Pipeline.Range(time.Now())
	if err != nil {
		log.Printf("[FATAL] resolve date range: %v", err)
		return 1
	}
	facts, err := wh.QueryFacts(ctx, cfg.Polygon.DefaultTicker, cfg.Pipeline.TargetCurrency,
		model.DateKey(from), model.DateKey(to))
	if err != nil {
		log.Printf("[FATAL] %v", err)
		return 1
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTICKER\tCCY\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME\tFX")
	for _, f := range facts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n", f.Date, f.Ticker, f.Currency,
			f.Open.StringFixed(4), f.High.StringFixed(4), f.Low.StringFixed(4), f.Close.StringFixed(4),
			f.Volume, f.FxRate.String())
	}
	w.Flush()
	log.Printf("[INFO] %d facts for %s in %s", len(facts), cfg.Polygon.DefaultTicker, cfg.Pipeline.TargetCurrency)
	return 0
}
