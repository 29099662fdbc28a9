package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"pollpulse/internal/config"
	"pollpulse/internal/exporter"
	"pollpulse/internal/infrastructure"
	"pollpulse/internal/poll"

	"github.com/chromedp/chromedp"
)

// pollHeader is the canonical schema the loader expects.
var pollHeader = []string{poll.ColumnPollster, poll.ColumnDate, poll.ColumnApprove, poll.ColumnDisapprove}

func main() {
	// Chrome automation can panic inside the CDP event loop; catch it so the
	// failure lands in the log instead of a bare stack trace.
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n", r)
			if logger != nil {
				logger.Error("Poll fetch panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	pageURL := flag.String("url", "", "page carrying the poll results table (required)")
	selector := flag.String("selector", "table", "CSS selector of the poll table")
	out := flag.String("out", "", "output csv path (defaults to the configured data file)")
	headless := flag.Bool("headless", true, "run browser headless")
	timeout := flag.Duration("timeout", 60*time.Second, "overall fetch timeout")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	cfg.Logging.FilePath = paths.GetLogPath("pollfetch.log")

	var logErr error
	logger, logErr = infrastructure.InitializeLogger(cfg.Logging)
	if logErr != nil {
		slog.Warn("Failed to initialize logger, using default", "error", logErr)
		logger = slog.Default()
	}

	if *pageURL == "" {
		logger.Error("Missing required -url flag")
		flag.Usage()
		os.Exit(1)
	}
	if *out == "" {
		*out = paths.ResolveDataFile(cfg.Polls.DataFile)
	}

	logger.Info("Starting poll fetch",
		slog.String("url", *pageURL),
		slog.String("selector", *selector),
		slog.String("output", *out),
		slog.Bool("headless", *headless),
		slog.Duration("timeout", *timeout))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", *headless),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	ctx, cancelTimeout := context.WithTimeout(browserCtx, *timeout)
	defer cancelTimeout()

	raw, err := fetchRows(ctx, *pageURL, *selector, logger)
	if err != nil {
		logger.Error("Failed to fetch poll table",
			slog.String("url", *pageURL),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	records := normalizeRows(raw)
	logger.Info("Poll table scraped",
		slog.Int("raw_rows", len(raw)),
		slog.Int("records", len(records)))
	if len(records) == 0 {
		logger.Error("No poll rows found in table",
			slog.String("selector", *selector),
			slog.Int("raw_rows", len(raw)))
		os.Exit(1)
	}

	if err := writePollCSV(*out, records); err != nil {
		logger.Error("Failed to write poll file",
			slog.String("path", *out),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Load the written file back so a broken scrape fails here, not at the
	// next dashboard startup.
	dataset, stats, err := poll.NewLoader(logger).LoadWithStats(*out)
	if err != nil {
		logger.Error("Fetched file failed validation",
			slog.String("path", *out),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Poll file written",
		slog.String("path", *out),
		slog.Int("observations", dataset.Len()),
		slog.Int("skipped", stats.Skipped),
		slog.Int("pollsters", len(dataset.Pollsters())))

	fmt.Printf("Poll fetch complete: %d observations -> %s\n", dataset.Len(), *out)
}

// fetchRows navigates to the page, waits for the table and pulls every row's
// cell texts out of the DOM.
func fetchRows(ctx context.Context, pageURL, selector string, logger *slog.Logger) ([][]string, error) {
	js := fmt.Sprintf(`Array.from(document.querySelectorAll('%s tr')).map(tr =>
		Array.from(tr.querySelectorAll('th, td')).map(cell => cell.innerText.trim())
	).filter(cells => cells.length > 0)`, selector)

	var rows [][]string
	err := chromedp.Run(ctx,
		timedAction("Navigate", logger, chromedp.Navigate(pageURL)),
		timedAction("WaitTable", logger, chromedp.WaitVisible(selector, chromedp.ByQuery)),
		chromedp.Evaluate(js, &rows),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return rows, nil
}

func timedAction(name string, logger *slog.Logger, act chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		err := act.Do(ctx)
		logger.Debug("browser action finished",
			slog.String("action", name),
			slog.Duration("duration", time.Since(start)))
		return err
	})
}

// normalizeRows turns scraped table rows into poll file records. A row
// survives when it has pollster, date and a numeric approve cell; header and
// decoration rows fail the numeric gate and drop out. A fourth cell is kept
// as disapprove when present, left blank otherwise so the loader derives it.
func normalizeRows(raw [][]string) [][]string {
	records := make([][]string, 0, len(raw))
	for _, row := range raw {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.TrimSpace(cell)
		}
		if len(cells) < 3 {
			continue
		}

		pollster, date := cells[0], cells[1]
		approve := cleanPercent(cells[2])
		if pollster == "" || date == "" {
			continue
		}
		if _, err := strconv.ParseFloat(approve, 64); err != nil {
			continue
		}

		disapprove := ""
		if len(cells) > 3 {
			disapprove = cleanPercent(cells[3])
		}
		records = append(records, []string{pollster, date, approve, disapprove})
	}
	return records
}

// cleanPercent strips a trailing percent sign so "48%" and "48" both load.
func cleanPercent(cell string) string {
	cell = strings.TrimSpace(cell)
	cell = strings.TrimSuffix(cell, "%")
	return strings.TrimSpace(cell)
}

func writePollCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	return exporter.WriteRecords(f, pollHeader, records, false)
}
