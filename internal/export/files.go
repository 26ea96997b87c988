package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meetblocks/internal/availability"
	appLog "meetblocks/internal/log"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatICS  = "ics"
)

const (
	timestampLayout = "20060102_150405"
	overviewPrefix  = "weekview-"
	fallbackName    = "meetblocks"
)

// FileBase names an export set after the events and the request time,
// e.g. "Team_Sync_Board_20250811_122452".
func FileBase(eventNames []string, now time.Time) string {
	parts := make([]string, 0, len(eventNames))
	for _, n := range eventNames {
		if s := sanitizeName(n); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, fallbackName)
	}
	return strings.Join(parts, "_") + "_" + now.Format(timestampLayout)
}

func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return '_'
		case strings.ContainsRune(`<>:"/\|?* `, r):
			return '_'
		}
		return r
	}, s)
}

// WriteAll writes res under dir in each requested format and returns the
// written paths in format order. csv produces the matrix and the
// "weekview-" overview file.
func WriteAll(dir, base string, res availability.Result, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create output dir: %w", err)
	}

	var paths []string
	write := func(name string, fn func(io.Writer) error) error {
		p := filepath.Join(dir, name)
		if err := writeFileAtomic(p, fn); err != nil {
			return err
		}
		paths = append(paths, p)
		appLog.Info("export written", "path", p)
		return nil
	}

	for _, f := range formats {
		var err error
		switch f {
		case FormatCSV:
			err = write(base+".csv", func(w io.Writer) error { return WriteMatrixCSV(w, res.Matrix) })
			if err == nil {
				err = write(overviewPrefix+base+".csv", func(w io.Writer) error { return WriteOverviewCSV(w, res.Overview) })
			}
		case FormatXLSX:
			err = write(base+".xlsx", func(w io.Writer) error { return WriteMatrixXLSX(w, res.Matrix, res.Overview) })
		case FormatICS:
			now := time.Now()
			err = write(base+".ics", func(w io.Writer) error { return WriteRangesICS(w, res.Ranges, now) })
		default:
			err = fmt.Errorf("export: unknown format %q", f)
		}
		if err != nil {
			return paths, err
		}
	}
	return paths, nil
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it into place.
func writeFileAtomic(path string, fn func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".meetblocks-export-*.tmp")
	if err != nil {
		return fmt.Errorf("export: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("export: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("export: rename into place: %w", err)
	}
	return nil
}
