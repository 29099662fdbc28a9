// Package curated resolves the curated pollster list used by the
// apply-curated selection action. The list always starts from configuration;
// when a Google Sheet is configured it can be refreshed from there, with any
// fetch failure leaving the last good list in place.
package curated

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"pollpulse/internal/config"
)

// Source holds the current curated pollster list. It is safe for concurrent
// use; Refresh may run while handlers read the list.
type Source struct {
	cfg     config.CuratedSheetConfig
	logger  *slog.Logger
	options []option.ClientOption

	mu   sync.RWMutex
	list []string
}

// NewSource creates a Source seeded with the statically configured list.
// Extra client options are appended when building the Sheets service, which
// lets tests point the client at a local server.
func NewSource(static []string, cfg config.CuratedSheetConfig, logger *slog.Logger, opts ...option.ClientOption) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "curated_source")),
		options: opts,
		list:    normalizeNames(static),
	}
}

// List returns a copy of the current curated list.
func (s *Source) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.list))
	copy(out, s.list)
	return out
}

// Enabled reports whether a sheet is configured as the list's source.
func (s *Source) Enabled() bool {
	return s.cfg.SpreadsheetID != ""
}

// Refresh replaces the list with the names read from the configured sheet.
// It is a no-op when no sheet is configured. On any failure the previous
// list is retained and the error returned, so callers can log and move on.
func (s *Source) Refresh(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	names, err := s.fetchSheetNames(ctx)
	if err != nil {
		s.logger.Warn("curated sheet refresh failed, keeping previous list",
			slog.String("spreadsheet_id", s.cfg.SpreadsheetID),
			slog.String("error", err.Error()))
		return err
	}

	s.mu.Lock()
	s.list = names
	s.mu.Unlock()

	s.logger.Info("curated list refreshed from sheet",
		slog.String("spreadsheet_id", s.cfg.SpreadsheetID),
		slog.Int("pollsters", len(names)))
	return nil
}

func (s *Source) fetchSheetNames(ctx context.Context) ([]string, error) {
	opts := make([]option.ClientOption, 0, len(s.options)+1)
	if s.cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(s.cfg.APIKey))
	}
	opts = append(opts, s.options...)

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	readRange := s.cfg.Range
	if readRange == "" {
		readRange = "A:A"
	}
	resp, err := service.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet values: %w", err)
	}

	names := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if name, ok := row[0].(string); ok {
			names = append(names, name)
		}
	}
	names = normalizeNames(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("sheet %s range %s contains no pollster names", s.cfg.SpreadsheetID, readRange)
	}
	return names, nil
}

// normalizeNames trims whitespace, drops empties and de-duplicates while
// preserving first-seen order.
func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
