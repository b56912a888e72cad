package manifest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// csvHeader matches the column layout of the original manifest.csv so exports
// stay readable by the notebook tooling.
var csvHeader = []string{"uid", "labeling_status", "worker_id", "start_time_utc", "end_time_utc", "output_filename", "notes"}

// WriteCSV streams a snapshot of the manifest as CSV.
func (s *Store) WriteCSV(ctx context.Context, w io.Writer) error {
	entries, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, entry := range entries {
		record := []string{
			entry.UID,
			string(entry.Status),
			entry.Assignee,
			formatCSVTime(entry.ClaimedAt),
			formatCSVTime(entry.CompletedAt),
			entry.OutputFile,
			entry.Notes,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record for %q: %w", entry.UID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCSVTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
