// Package denylist renders the deny list into a web-server configuration file.
package denylist

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BradenHooton/warden/internal/models"
)

const (
	FormatApache = "apache"
	FormatNginx  = "nginx"

	BeginMarker = "# BEGIN WARDEN DENY LIST"
	EndMarker   = "# END WARDEN DENY LIST"
)

// FileWriter keeps a marker-delimited block of a web-server config file in sync with the deny list.
// Content outside the markers is preserved.
type FileWriter struct {
	path   string
	format string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewFileWriter(path, format string, logger *slog.Logger) *FileWriter {
	return &FileWriter{path: path, format: format, logger: logger}
}

// Enabled reports whether a target file is configured.
func (w *FileWriter) Enabled() bool {
	return w.path != ""
}

// Sync rewrites the deny block with the given entries. It is a no-op without a configured path.
func (w *FileWriter) Sync(entries []models.DenyListEntry) error {
	if !w.Enabled() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	existing, err := os.ReadFile(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", w.path, err)
	}

	data := replaceBlock(string(existing), w.renderBlock(entries))
	if err := writeAtomic(w.path, []byte(data)); err != nil {
		return err
	}

	w.logger.Info("deny file synced", "path", w.path, "entries", len(entries))
	return nil
}

func (w *FileWriter) renderBlock(entries []models.DenyListEntry) string {
	var b strings.Builder
	b.WriteString(BeginMarker)
	b.WriteByte('\n')
	for _, e := range entries {
		switch w.format {
		case FormatNginx:
			fmt.Fprintf(&b, "deny %s;\n", e.IPAddress)
		default:
			fmt.Fprintf(&b, "Require not ip %s\n", e.IPAddress)
		}
	}
	b.WriteString(EndMarker)
	b.WriteByte('\n')
	return b.String()
}

// replaceBlock swaps the marker block in content for block, appending it when no block exists.
func replaceBlock(content, block string) string {
	start := strings.Index(content, BeginMarker)
	end := strings.Index(content, EndMarker)
	if start == -1 || end == -1 || end < start {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content + block
	}

	end += len(EndMarker)
	if end < len(content) && content[end] == '\n' {
		end++
	}
	return content[:start] + block + content[end:]
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".denylist-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp deny file: %w", err)
	}
	tmpName := tmpFile.Name()
	removeTemp := true
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if removeTemp {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp deny file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp deny file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp deny file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	removeTemp = false
	return nil
}
