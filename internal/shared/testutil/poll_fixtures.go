package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SamplePollCSV returns a small dataset covering two pollsters across three
// days. Alpha Research reports both metrics; Beta Polling omits disapprove on
// the last row so loaders can exercise the derived value path.
func SamplePollCSV() string {
	return PollCSV(
		"Alpha Research,2024-01-01,48,47",
		"Beta Polling,2024-01-01,44,50",
		"Alpha Research,2024-01-02,50,45",
		"Beta Polling,2024-01-02,46,49",
		"Alpha Research,2024-01-03,52,43",
		"Beta Polling,2024-01-03,45,",
	)
}

// PollCSV builds dataset file content with the standard header row.
func PollCSV(rows ...string) string {
	var b strings.Builder
	b.WriteString("pollster,date,approve,disapprove\n")
	for _, row := range rows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

// MalformedPollCSV returns dataset content for various broken inputs.
func MalformedPollCSV(kind string) string {
	switch kind {
	case "missing_approve_column":
		return "pollster,date,disapprove\nAlpha Research,2024-01-01,47\n"
	case "missing_all_columns":
		return "foo,bar\n1,2\n"
	case "header_only":
		return "pollster,date,approve,disapprove\n"
	case "empty":
		return ""
	case "bad_rows":
		return PollCSV(
			"Alpha Research,2024-01-01,48,47",
			"Alpha Research,not-a-date,50,45",
			"Alpha Research,2024-01-02,not-a-number,45",
			",2024-01-03,52,43",
		)
	default:
		return SamplePollCSV()
	}
}

// WritePollCSV writes dataset content to a file under dir and returns its path.
func WritePollCSV(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dataset dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset file: %v", err)
	}
	return path
}

// TempPollCSV writes dataset content to a fresh temp dir and returns its path.
func TempPollCSV(t *testing.T, content string) string {
	t.Helper()
	return WritePollCSV(t, t.TempDir(), "polls.csv", content)
}
