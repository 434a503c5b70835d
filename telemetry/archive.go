package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ArchiveVersion is incremented when the archive envelope changes.
const ArchiveVersion = 1

// Archive wraps a chunk snapshot for offline analysis.
type Archive struct {
	Version  int             `json:"version"`
	Seed     int64           `json:"seed"`
	Tick     int64           `json:"tick"`
	Bookmark *Bookmark       `json:"bookmark,omitempty"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// SaveSnapshot writes snapshot as zstd-compressed JSON into dir.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot any, seed, tick int64, bookmark *Bookmark, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", tick)
	if bookmark != nil {
		sanitized := strings.ReplaceAll(string(bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", tick, sanitized)
	}
	path := filepath.Join(dir, name+".json.zst")

	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	data, err := json.Marshal(Archive{
		Version:  ArchiveVersion,
		Seed:     seed,
		Tick:     tick,
		Bookmark: bookmark,
		Snapshot: body,
	})
	if err != nil {
		return "", fmt.Errorf("marshal archive: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	zw, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads an archive from disk and decodes its snapshot into v.
func LoadSnapshot(path string, v any) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer zr.Close()

	var arc Archive
	if err := json.NewDecoder(zr).Decode(&arc); err != nil {
		return nil, fmt.Errorf("unmarshal archive: %w", err)
	}
	if arc.Version != ArchiveVersion {
		return nil, fmt.Errorf("unsupported archive version %d", arc.Version)
	}
	if v != nil {
		if err := json.Unmarshal(arc.Snapshot, v); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
	}
	return &arc, nil
}
