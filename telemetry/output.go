package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/bonsai/config"
)

// csvLog is an append-only CSV file whose header is written with the first row.
type csvLog struct {
	name   string
	f      *os.File
	header bool
}

func openCSV(dir, name string) (*csvLog, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvLog{name: name, f: f}, nil
}

// appendRow writes one row, preceded by the header on first use.
func appendRow[T any](l *csvLog, row T) error {
	rows := []T{row}
	var err error
	if l.header {
		err = gocsv.MarshalWithoutHeaders(rows, l.f)
	} else {
		err = gocsv.Marshal(rows, l.f)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", l.name, err)
	}
	l.header = true
	return nil
}

// OutputManager writes a run's CSV logs, config and seed bank into one
// directory. A nil *OutputManager discards everything.
type OutputManager struct {
	dir       string
	telemetry *csvLog
	perf      *csvLog
	bookmarks *csvLog
}

// NewOutputManager creates dir and opens the CSV logs in it.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, open := range []struct {
		dst  **csvLog
		name string
	}{
		{&om.telemetry, "telemetry.csv"},
		{&om.perf, "perf.csv"},
		{&om.bookmarks, "bookmarks.csv"},
	} {
		l, err := openCSV(dir, open.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*open.dst = l
	}
	return om, nil
}

// WriteConfig saves the configuration as config.yaml.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry appends a window to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return appendRow(om.telemetry, stats)
}

// WritePerf appends a perf summary to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	return appendRow(om.perf, stats.ToCSV(windowEnd))
}

// WriteBookmark appends a bookmark to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return appendRow(om.bookmarks, b)
}

// WriteSeedBank saves the seed bank as seed_bank.json.
func (om *OutputManager) WriteSeedBank(bank *SeedBank) error {
	if om == nil || bank == nil {
		return nil
	}
	data, err := bank.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling seed bank: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "seed_bank.json"), data, 0644); err != nil {
		return fmt.Errorf("writing seed_bank.json: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes every open log.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, l := range []*csvLog{om.telemetry, om.perf, om.bookmarks} {
		if l != nil {
			errs = append(errs, l.f.Close())
		}
	}
	return errors.Join(errs...)
}
