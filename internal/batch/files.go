// =============================================================================
// Geo Format Converter - File Management
// =============================================================================
//
// This module provides the file handling used by the batch runner:
//   - Input discovery (a single file or a directory tree)
//   - Output path generation (mirrored tree + name format)
//   - Output writing
//
// OUTPUT LAYOUT:
//   input:  data/city/parks.kml   (root: data)
//   output: out/city/parks.geojson (output_dir: out)
//
//   With an empty output_dir every output is written next to its input.
//
// =============================================================================

package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// Discover returns the input files under root in lexical order.
//
// A root that is a regular file is returned as is, and must have a
// recognized extension. A directory is walked recursively; files with
// other extensions are ignored.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read input path")
	}

	if !info.IsDir() {
		if _, err := types.FormatFromExtension(root); err != nil {
			return nil, errors.Wrapf(err, "input %s", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := types.FormatFromExtension(path); err == nil {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk input directory")
	}

	return files, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// OutputFileName fills the name format for one input and target.
//
// Placeholders:
//
//	{stem}      - input file name without extension
//	{ext}       - target extension (xml, kml, geojson)
//	{format}    - target format name
//	{uuid}      - a random UUID
//	{timestamp} - timestamp (YYYYMMDD_HHMMSS)
//	{date}      - date (YYYYMMDD)
//
// The target extension is appended when the result does not end with it.
func OutputFileName(format, input string, target types.Format, now time.Time) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	replacer := strings.NewReplacer(
		"{stem}", stem,
		"{ext}", target.Extension(),
		"{format}", target.String(),
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
	)
	name := replacer.Replace(format)

	if !strings.HasSuffix(strings.ToLower(name), "."+target.Extension()) {
		name += "." + target.Extension()
	}
	return name
}

// OutputPath returns where the target output of input is written.
func OutputPath(root, input, outputDir, nameFormat string, target types.Format, now time.Time) (string, error) {
	name := OutputFileName(nameFormat, input, target, now)
	if outputDir == "" {
		return filepath.Join(filepath.Dir(input), name), nil
	}

	rel := "."
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		r, err := filepath.Rel(root, filepath.Dir(input))
		if err != nil {
			return "", errors.Wrapf(err, "failed to place %s under %s", input, root)
		}
		rel = r
	}
	return filepath.Join(outputDir, rel, name), nil
}

// =============================================================================
// OUTPUT WRITING
// =============================================================================

// writeOutput writes data to path, creating parent directories. It refuses
// to replace the input file itself.
func writeOutput(input, path string, data []byte) error {
	if samePath(input, path) {
		return errors.Newf("output %s would overwrite its input", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write output file")
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
