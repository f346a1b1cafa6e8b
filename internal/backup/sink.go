// Package backup persists pre-change tag snapshots for rollback and
// audit. Sinks are best-effort: a failed snapshot is a warning, never a
// reason to block the apply that follows it.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retag-io/retag/internal/ir"
)

// Sink writes one snapshot of a resource's tags, keyed by resource
// name.
type Sink interface {
	Write(ctx context.Context, resourceName string, tags ir.TagMap) error
}

// DirSink stores snapshots as indented JSON files in a local directory,
// one file per resource: <name>_tags_backup.json.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

func (s *DirSink) Write(_ context.Context, resourceName string, tags ir.TagMap) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := marshalSnapshot(tags)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, SnapshotFilename(resourceName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", path, err)
	}
	return nil
}

// NopSink discards snapshots; used when backups are disabled.
type NopSink struct{}

func (NopSink) Write(context.Context, string, ir.TagMap) error { return nil }

// SnapshotFilename derives the deterministic backup file name for a
// resource. Path separators and other unsafe characters in the resource
// name are flattened so the name is always a single file component.
func SnapshotFilename(resourceName string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, resourceName)
	return safe + "_tags_backup.json"
}

func marshalSnapshot(tags ir.TagMap) ([]byte, error) {
	if tags == nil {
		tags = ir.TagMap{}
	}
	data, err := json.MarshalIndent(tags, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tag snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
