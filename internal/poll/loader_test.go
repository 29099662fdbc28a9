package poll

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testLoader() *Loader {
	return NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// writePollCSV writes lines to a temp CSV file and returns its path.
func writePollCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polls.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestLoader_Load_CSV(t *testing.T) {
	path := writePollCSV(t,
		"pollster,date,Approve,Disapprove",
		"Beta Polling,2024-01-01,44,50",
		"Alpha Research,2024-01-01,40,55",
		"Alpha Research,2024-01-02,30,60",
	)

	dataset, err := testLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, dataset.Len())
	assert.Equal(t, []string{"Alpha Research", "Beta Polling"}, dataset.Pollsters())

	obs := dataset.Observations()
	assert.Equal(t, "Beta Polling", obs[0].Pollster)
	assert.Equal(t, 44.0, obs[0].Approve)
	assert.Equal(t, 50.0, obs[0].Disapprove)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), obs[0].Date)
}

func TestLoader_Load_DerivesDisapprove(t *testing.T) {
	path := writePollCSV(t,
		"pollster,date,Approve",
		"Alpha Research,2024-01-01,40.5",
		"Beta Polling,2024-01-01,44",
		"Alpha Research,2024-01-02,30",
	)

	dataset, err := testLoader().Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, dataset.Len())

	for _, obs := range dataset.Observations() {
		assert.Equal(t, 100-obs.Approve, obs.Disapprove,
			"derived disapprove must equal 100 - approve for %s on %s", obs.Pollster, obs.DateKey())
	}
}

func TestLoader_Load_DerivesBlankDisapproveCell(t *testing.T) {
	path := writePollCSV(t,
		"pollster,date,Approve,Disapprove",
		"Alpha Research,2024-01-01,40,",
		"Beta Polling,2024-01-01,44,51",
	)

	dataset, err := testLoader().Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, dataset.Len())

	obs := dataset.Observations()
	assert.Equal(t, 60.0, obs[0].Disapprove)
	assert.Equal(t, 51.0, obs[1].Disapprove)
}

func TestLoader_Load_MissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		missing []string
	}{
		{
			name:    "no approve column",
			header:  "pollster,date,Sample",
			missing: []string{ColumnApprove},
		},
		{
			name:    "no pollster column",
			header:  "date,Approve",
			missing: []string{ColumnPollster},
		},
		{
			name:    "only unrelated columns",
			header:  "firm,published,value",
			missing: []string{ColumnPollster, ColumnDate, ColumnApprove},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePollCSV(t, tt.header, "x,y,z")

			_, err := testLoader().Load(path)
			require.Error(t, err)

			var confErr *ConfigurationError
			require.ErrorAs(t, err, &confErr)
			assert.Equal(t, tt.missing, confErr.Missing)
			for _, col := range tt.missing {
				assert.Contains(t, err.Error(), col)
			}
		})
	}
}

func TestLoader_Load_SkipsUnparseableRows(t *testing.T) {
	path := writePollCSV(t,
		"pollster,date,Approve",
		"Alpha Research,2024-01-01,40",
		",2024-01-02,41",                // empty pollster
		"Beta Polling,not-a-date,42",    // bad date
		"Beta Polling,2024-01-03,heaps", // bad value
		"Beta Polling,2024-01-04,140",   // outside [0,100]
		"Gamma Insight,2024-01-05,55",
	)

	dataset, err := testLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, dataset.Len())
	assert.Equal(t, []string{"Alpha Research", "Gamma Insight"}, dataset.Pollsters())
}

func TestLoader_LoadWithStats_CountsSkippedRows(t *testing.T) {
	path := writePollCSV(t,
		"pollster,date,Approve",
		"Alpha Research,2024-01-01,40",
		",2024-01-02,41",
		"Beta Polling,not-a-date,42",
		"Gamma Insight,2024-01-05,55",
	)

	dataset, stats, err := testLoader().LoadWithStats(path)
	require.NoError(t, err)

	assert.Equal(t, 2, dataset.Len())
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 2, stats.Skipped)
}

func TestLoader_Load_HeaderOnly(t *testing.T) {
	path := writePollCSV(t, "pollster,date,Approve")

	dataset, err := testLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, dataset.Len())
	assert.Empty(t, dataset.Pollsters())
	_, _, ok := dataset.DateRange()
	assert.False(t, ok)
}

func TestLoader_Load_BOMHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polls.csv")
	content := "\xEF\xBB\xBFpollster,date,Approve\nAlpha Research,2024-01-01,40\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	dataset, err := testLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, dataset.Len())
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	_, err := testLoader().Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoader_Load_XLSXMatchesCSV(t *testing.T) {
	rows := [][]interface{}{
		{"pollster", "date", "Approve"},
		{"Alpha Research", "2024-01-01", 40},
		{"Beta Polling", "2024-01-01", 44},
		{"Alpha Research", "2024-01-02", 30},
	}

	xlsxPath := filepath.Join(t.TempDir(), "polls.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellRef, cell))
		}
	}
	require.NoError(t, f.SaveAs(xlsxPath))
	require.NoError(t, f.Close())

	csvPath := writePollCSV(t,
		"pollster,date,Approve",
		"Alpha Research,2024-01-01,40",
		"Beta Polling,2024-01-01,44",
		"Alpha Research,2024-01-02,30",
	)

	fromXLSX, err := testLoader().Load(xlsxPath)
	require.NoError(t, err)
	fromCSV, err := testLoader().Load(csvPath)
	require.NoError(t, err)

	assert.Equal(t, fromCSV.Observations(), fromXLSX.Observations())
	assert.Equal(t, fromCSV.Pollsters(), fromXLSX.Pollsters())
}

func TestLoader_Load_LowercaseHeaderFallback(t *testing.T) {
	path := writePollCSV(t,
		"Pollster,Date,approve,disapprove",
		"Alpha Research,2024-01-01,40,55",
	)

	dataset, err := testLoader().Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, dataset.Len())
	assert.Equal(t, 55.0, dataset.Observations()[0].Disapprove)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "ISO", input: "2024-03-05", want: want},
		{name: "US slashes", input: "03/05/2024", want: want},
		{name: "alternative ISO", input: "2024/03/05", want: want},
		{name: "with time component", input: "2024-03-05 14:30:00", want: want},
		{name: "garbage", input: "soonish", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestDataset_DateRange(t *testing.T) {
	dataset := NewDataset([]Observation{
		{Pollster: "A", Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{Pollster: "B", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Pollster: "A", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	})

	first, last, ok := dataset.DateRange()
	require.True(t, ok)
	assert.Equal(t, "2024-01-02", first.Format(DateLayout))
	assert.Equal(t, "2024-02-01", last.Format(DateLayout))
}

func TestNewDataset_PollstersSortedDistinct(t *testing.T) {
	dataset := NewDataset([]Observation{
		{Pollster: "Zeta"},
		{Pollster: "Alpha"},
		{Pollster: "Zeta"},
		{Pollster: "Mid"},
	})

	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, dataset.Pollsters())
}
