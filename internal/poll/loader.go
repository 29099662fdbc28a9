package poll

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Canonical source column names. Matching is exact first, then lowercase,
// so "Approve" and "approve" both resolve.
const (
	ColumnPollster   = "pollster"
	ColumnDate       = "date"
	ColumnApprove    = "Approve"
	ColumnDisapprove = "Disapprove"
)

// RequiredColumns lists the columns a poll file must provide. Disapprove is
// optional; it is derived as 100 - Approve when absent.
var RequiredColumns = []string{ColumnPollster, ColumnDate, ColumnApprove}

// ConfigurationError reports a poll file whose schema cannot feed the
// pipeline. It is fatal: no aggregation or smoothing runs against a file
// that produced one.
type ConfigurationError struct {
	Missing []string // required columns absent from the header
	Header  []string // the header actually found, for diagnostics
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("required columns not found: %v (header: %v)", e.Missing, e.Header)
}

// Loader reads poll observations from a CSV or XLSX file into a Dataset.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger.With(slog.String("component", "poll_loader")),
	}
}

// LoadStats reports what a load consumed and dropped.
type LoadStats struct {
	Rows    int // observations that made it into the dataset
	Skipped int // data rows dropped with a warning
}

// Load reads the file at path and returns the parsed dataset. The format is
// chosen by extension: .xlsx via excelize, anything else as CSV. A file with
// a valid header and no data rows yields an empty dataset, which is valid;
// only a broken schema returns an error.
func (l *Loader) Load(path string) (*Dataset, error) {
	dataset, _, err := l.LoadWithStats(path)
	return dataset, err
}

// LoadWithStats is Load plus row accounting for callers that report load
// metrics.
func (l *Loader) LoadWithStats(path string) (*Dataset, LoadStats, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, LoadStats{}, fmt.Errorf("poll file not found: %s", path)
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = l.readXLSX(path)
	default:
		rows, err = l.readCSV(path)
	}
	if err != nil {
		return nil, LoadStats{}, err
	}

	dataset, skipped, err := l.parseRows(rows)
	if err != nil {
		return nil, LoadStats{}, err
	}
	stats := LoadStats{Rows: dataset.Len(), Skipped: skipped}

	first, last, _ := dataset.DateRange()
	l.logger.Info("poll file loaded",
		slog.String("path", path),
		slog.Int("observations", dataset.Len()),
		slog.Int("skipped", skipped),
		slog.Int("pollsters", len(dataset.Pollsters())),
		slog.String("first_date", first.Format(DateLayout)),
		slog.String("last_date", last.Format(DateLayout)))

	return dataset, stats, nil
}

// readCSV reads all records from a CSV file, stripping a UTF-8 BOM if the
// file was exported from a spreadsheet tool.
func (l *Loader) readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open poll file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll file: %w", err)
	}
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return records, nil
}

// readXLSX reads all rows from the first sheet of an Excel workbook.
func (l *Loader) readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %s", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// columnIndices holds the header positions of the poll columns. -1 means the
// column is absent.
type columnIndices struct {
	pollster   int
	date       int
	approve    int
	disapprove int
}

// findColumnIndices locates the poll columns in the header, matching the
// canonical names first and falling back to lowercase comparison. Header
// cells are cleaned of BOM and zero-width characters before matching.
func findColumnIndices(header []string) columnIndices {
	indices := columnIndices{
		pollster:   -1,
		date:       -1,
		approve:    -1,
		disapprove: -1,
	}

	for i, col := range header {
		cleanCol := strings.TrimSpace(col)
		cleanCol = strings.TrimPrefix(cleanCol, "\uFEFF")
		cleanCol = strings.TrimLeft(cleanCol, "​‌‍⁠\uFEFF")
		cleanCol = strings.TrimSpace(cleanCol)

		switch cleanCol {
		case ColumnPollster:
			indices.pollster = i
		case ColumnDate:
			indices.date = i
		case ColumnApprove:
			indices.approve = i
		case ColumnDisapprove:
			indices.disapprove = i
		default:
			switch strings.ToLower(cleanCol) {
			case "pollster", "poll", "source":
				indices.pollster = i
			case "date", "end_date", "enddate":
				indices.date = i
			case "approve", "approval", "approve_percent":
				indices.approve = i
			case "disapprove", "disapproval", "disapprove_percent":
				indices.disapprove = i
			}
		}
	}

	return indices
}

// parseRows turns raw file rows into a Dataset. Rows that cannot be parsed
// are skipped with a warning; a missing required column aborts the load with
// a ConfigurationError.
func (l *Loader) parseRows(rows [][]string) (*Dataset, int, error) {
	if len(rows) == 0 {
		return nil, 0, &ConfigurationError{Missing: RequiredColumns}
	}

	header := rows[0]
	columns := findColumnIndices(header)

	var missing []string
	if columns.pollster == -1 {
		missing = append(missing, ColumnPollster)
	}
	if columns.date == -1 {
		missing = append(missing, ColumnDate)
	}
	if columns.approve == -1 {
		missing = append(missing, ColumnApprove)
	}
	if len(missing) > 0 {
		return nil, 0, &ConfigurationError{Missing: missing, Header: header}
	}

	deriveAll := columns.disapprove == -1
	if deriveAll {
		l.logger.Info("no disapprove column; deriving disapprove as 100 - approve")
	}

	skipped := 0
	observations := make([]Observation, 0, len(rows)-1)
	for i, record := range rows[1:] {
		line := i + 2 // 1-based, after the header

		if columns.pollster >= len(record) || columns.date >= len(record) || columns.approve >= len(record) {
			l.logger.Warn("skipping short row", slog.Int("line", line), slog.Int("fields", len(record)))
			skipped++
			continue
		}

		pollster := strings.TrimSpace(record[columns.pollster])
		if pollster == "" {
			l.logger.Warn("skipping row with empty pollster", slog.Int("line", line))
			skipped++
			continue
		}

		date, err := parseDate(strings.TrimSpace(record[columns.date]))
		if err != nil {
			l.logger.Warn("skipping row with bad date",
				slog.Int("line", line),
				slog.String("value", record[columns.date]))
			skipped++
			continue
		}

		approve, err := parsePercent(record[columns.approve])
		if err != nil {
			l.logger.Warn("skipping row with bad approve value",
				slog.Int("line", line),
				slog.String("value", record[columns.approve]))
			skipped++
			continue
		}

		// Disapprove is taken from the file when the column and cell are
		// present; otherwise it is derived here, exactly once. Downstream
		// code treats both the same.
		var disapprove float64
		cell := ""
		if !deriveAll && columns.disapprove < len(record) {
			cell = strings.TrimSpace(record[columns.disapprove])
		}
		if cell == "" {
			disapprove = 100 - approve
		} else {
			disapprove, err = parsePercent(cell)
			if err != nil {
				l.logger.Warn("skipping row with bad disapprove value",
					slog.Int("line", line),
					slog.String("value", cell))
				skipped++
				continue
			}
		}

		observations = append(observations, Observation{
			Pollster:   pollster,
			Date:       date,
			Approve:    approve,
			Disapprove: disapprove,
		})
	}

	return NewDataset(observations), skipped, nil
}

// parseDate attempts to parse date strings in multiple formats. The result is
// normalized to midnight UTC: poll dates are calendar days, never timestamps.
func parseDate(dateStr string) (time.Time, error) {
	dateFormats := []string{
		"2006-01-02",          // ISO format
		"01/02/2006",          // US format
		"02/01/2006",          // European format
		"2006/01/02",          // Alternative ISO
		"2006-01-02 15:04:05", // With time
		"01-02-2006",          // US with dashes
	}

	for _, format := range dateFormats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// parsePercent parses a percentage-point value and rejects anything outside
// [0, 100].
func parsePercent(str string) (float64, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return 0, fmt.Errorf("empty value")
	}
	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", str, err)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("value %.2f outside [0, 100]", value)
	}
	return value, nil
}
