package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"pulsemon/internal/models"
)

// Snapshot is the export document.
type Snapshot struct {
	Metrics    []models.Sample `json:"metrics"`
	Alerts     []models.Alert  `json:"alerts"`
	ExportTime time.Time       `json:"exportTime"`
}

func ExportFileName(t time.Time) string {
	return "performance_data_" + t.UTC().Format("2006-01-02") + ".json"
}

func (m *Monitor) Export() Snapshot {
	return Snapshot{
		Metrics:    m.history.Snapshot(),
		Alerts:     m.alerts.Items(),
		ExportTime: time.Now().UTC(),
	}
}

func (m *Monitor) WriteExport(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m.Export())
}

// Import replaces history and alerts with the content of an export document.
// Entries beyond the current capacities are dropped (oldest samples, tail alerts).
func (m *Monitor) Import(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(io.LimitReader(r, 32<<20))
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode export: %w", err)
	}
	for i, s := range snap.Metrics {
		if !s.Complete() {
			return Snapshot{}, fmt.Errorf("metrics[%d]: %w: incomplete metric set", i, models.ErrMalformedResponse)
		}
	}
	m.history.Replace(snap.Metrics)
	m.alerts.Replace(snap.Alerts)
	return snap, nil
}
