package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"strategy-backtester/config"
	"strategy-backtester/internal/backtest"
	"strategy-backtester/internal/logging"
	"strategy-backtester/internal/market"
	"strategy-backtester/internal/strategy"
)

func main() {
	godotenv.Load()

	var (
		candlesPath  = flag.String("candles", "", "OHLCV csv file (required)")
		strategyPath = flag.String("strategy", "", "strategy definition file, json or yaml")
		sweepGlob    = flag.String("sweep", "", "glob of strategy files to run in parallel")
		configPath   = flag.String("config", "config.json", "engine config file")
		balance      = flag.Float64("balance", 0, "initial balance, overrides config")
		spread       = flag.Float64("spread", -1, "spread in pips, overrides config")
		symbol       = flag.String("symbol", "", "symbol override for the csv data")
		timeframe    = flag.String("timeframe", "", "timeframe label for the report")
		jsonOut      = flag.String("out", "", "write the full report as json to this file")
	)
	flag.Parse()

	if *candlesPath == "" || (*strategyPath == "" && *sweepGlob == "") {
		fmt.Fprintln(os.Stderr, "usage: backtest -candles data.csv -strategy strat.json [flags]")
		fmt.Fprintln(os.Stderr, "       backtest -candles data.csv -sweep 'strategies/*.json' [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *balance > 0 {
		cfg.Backtest.InitialBalance = *balance
	}
	if *spread >= 0 {
		cfg.Backtest.SpreadPips = *spread
	}

	logger := logging.New(cfg.Logging.ToLogging())

	series, err := market.LoadCSV(*candlesPath, *symbol, *timeframe)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *candlesPath).Msg("failed to load candles")
	}
	logger.Info().Int("candles", series.Len()).Str("symbol", series.Symbol).Msg("candles loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engCfg := backtest.Config{
		InitialBalance: cfg.Backtest.InitialBalance,
		SpreadPips:     cfg.Backtest.SpreadPips,
		Warmup:         cfg.Backtest.Warmup,
		TPBeforeSL:     cfg.Backtest.TPBeforeSL,
	}

	if *sweepGlob != "" {
		os.Exit(runSweep(ctx, logger, series, engCfg, *sweepGlob, cfg.Backtest.SweepWorkers))
	}

	def, err := strategy.LoadFile(*strategyPath)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *strategyPath).Msg("failed to load strategy")
	}
	if series.Symbol == "" {
		series.Symbol = def.Symbol
	}

	report, err := backtest.NewEngine(def, engCfg, logger).Run(ctx, series)
	if err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}

	report.PrintSummary(os.Stdout)
	if *jsonOut != "" {
		if err := writeReport(report, *jsonOut); err != nil {
			logger.Fatal().Err(err).Msg("failed to write report")
		}
		logger.Info().Str("file", *jsonOut).Msg("report written")
	}
}

type sweepResult struct {
	file   string
	report *backtest.Report
	err    error
}

// runSweep backtests every matched strategy file against the same series
// with a bounded worker pool, one engine per run, and prints the results
// ranked by net profit.
func runSweep(ctx context.Context, logger zerolog.Logger, series *market.Series, engCfg backtest.Config, glob string, workers int) int {
	files, err := filepath.Glob(glob)
	if err != nil || len(files) == 0 {
		logger.Error().Err(err).Str("glob", glob).Msg("no strategy files matched")
		return 1
	}
	sort.Strings(files)
	logger.Info().Int("strategies", len(files)).Int("workers", workers).Msg("sweep started")

	jobs := make(chan string)
	results := make(chan sweepResult, len(files))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				res := sweepResult{file: file}
				def, err := strategy.LoadFile(file)
				if err != nil {
					res.err = err
				} else {
					run := *series
					if run.Symbol == "" {
						run.Symbol = def.Symbol
					}
					res.report, res.err = backtest.NewEngine(def, engCfg, logger).Run(ctx, &run)
				}
				results <- res
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	close(results)

	var all []sweepResult
	failed := 0
	for res := range results {
		if res.err != nil {
			failed++
			logger.Error().Err(res.err).Str("file", res.file).Msg("run failed")
			continue
		}
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].report.Stats.NetProfit > all[j].report.Stats.NetProfit
	})

	fmt.Printf("=== Sweep: %d strategies, %d failed ===\n", len(files), failed)
	for _, res := range all {
		s := res.report.Stats
		fmt.Printf("%-40s net=%-10.2f pf=%-6.2f win%%=%-5.1f trades=%-4d dd%%=%.1f\n",
			filepath.Base(res.file), s.NetProfit, s.ProfitFactor, s.WinRate, s.TotalTrades, s.MaxDrawdownPct)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func writeReport(r *backtest.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.WriteJSON(f)
}
