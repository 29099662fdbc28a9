package exporter

import (
	"io"
	"log/slog"

	"pollpulse/internal/poll"
)

// BuildObservationRows turns raw observations into CSV headers and records,
// in the same column layout the loader reads. Only observations from
// pollsters in the selected set are written; a nil set writes everything.
func BuildObservationRows(observations []poll.Observation, selected map[string]struct{}) ([]string, [][]string) {
	headers := []string{"pollster", "date", "Approve", "Disapprove"}

	records := make([][]string, 0, len(observations))
	for _, obs := range observations {
		if selected != nil {
			if _, ok := selected[obs.Pollster]; !ok {
				continue
			}
		}
		records = append(records, []string{
			obs.Pollster,
			obs.DateKey(),
			formatValue(obs.Approve),
			formatValue(obs.Disapprove),
		})
	}

	return headers, records
}

// WriteObservations writes the filtered raw poll table as CSV to any writer.
func WriteObservations(w io.Writer, observations []poll.Observation, selected map[string]struct{}, bom bool) error {
	headers, records := BuildObservationRows(observations, selected)
	return WriteRecords(w, headers, records, bom)
}

// WriteObservationsCSV writes the filtered raw poll table to the given path.
func (w *CSVWriter) WriteObservationsCSV(path string, observations []poll.Observation, selected map[string]struct{}) error {
	headers, records := BuildObservationRows(observations, selected)

	w.logger.Info("writing observations CSV", slog.Int("rows", len(records)))

	return w.WriteCSV(path, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}
