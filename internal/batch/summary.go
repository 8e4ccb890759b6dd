// =============================================================================
// Geo Format Converter - Processing Summary
// =============================================================================

package batch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ginjaninja78/geo-format-converter/internal/types"
	"github.com/ginjaninja78/geo-format-converter/internal/validation"
)

// Mode names the kind of run a Summary describes.
type Mode string

const (
	ModeConvert  Mode = "convert"
	ModeValidate Mode = "validate"
)

// FileResult is the outcome of one input file.
type FileResult struct {
	Input  string
	Source types.Format

	// Records is the number of records parsed.
	Records int

	// Outputs maps each written target to its path.
	Outputs map[types.Format]string

	// SkippedTargets were dropped because they match the source format.
	SkippedTargets []types.Format

	// TargetErrors holds the targets that failed to serialize or write.
	TargetErrors map[types.Format]error

	// Validation is set by Check.
	Validation *validation.ValidationResult

	// Err is a failure of the whole file: unreadable, unsupported or
	// unparseable.
	Err error

	Duration time.Duration
}

// Failed reports whether the file or any of its targets failed.
func (r FileResult) Failed() bool {
	return r.Err != nil || len(r.TargetErrors) > 0
}

// Skipped reports whether nothing was attempted for the file.
func (r FileResult) Skipped() bool {
	return !r.Failed() && len(r.Outputs) == 0 && len(r.SkippedTargets) > 0
}

func (r *FileResult) addFailure(t types.Format, err error) {
	if r.TargetErrors == nil {
		r.TargetErrors = map[types.Format]error{}
	}
	r.TargetErrors[t] = err
}

// Summary contains summary information about a run.
type Summary struct {
	Mode      Mode
	Root      string
	StartTime time.Time
	EndTime   time.Time

	TotalFiles   int
	Succeeded    int
	Skipped      int
	Failed       int
	TotalRecords int

	Files []FileResult

	// ReportPath is set when a summary report was written.
	ReportPath string
}

func (s *Summary) add(r FileResult) {
	s.TotalFiles++
	s.TotalRecords += r.Records
	switch {
	case r.Failed():
		s.Failed++
	case r.Skipped():
		s.Skipped++
	default:
		s.Succeeded++
	}
	s.Files = append(s.Files, r)
}

// =============================================================================
// SUMMARY REPORT
// =============================================================================

// WriteSummaryReport writes s to conversion_summary_<timestamp>.txt (or
// validation_summary_<timestamp>.txt) in dir and returns the file path.
func WriteSummaryReport(s Summary, dir string) (string, error) {
	name := fmt.Sprintf("%s_summary_%s.txt", strings.ToLower(title(s.Mode)), s.EndTime.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create report directory")
	}
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create summary file")
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	const rule = "================================================================================\n"

	fmt.Fprintf(w, "Geo Format Converter - %s Summary\n", title(s.Mode))
	w.WriteString(rule + "\n")
	fmt.Fprintf(w, "Run Information:\n"+
		"  Input:          %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		s.Root,
		s.StartTime.Format("2006-01-02 15:04:05"),
		s.EndTime.Format("2006-01-02 15:04:05"),
		s.EndTime.Sub(s.StartTime))
	fmt.Fprintf(w, "Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Succeeded:      %d\n"+
		"  Skipped:        %d\n"+
		"  Failed:         %d\n"+
		"  Total Records:  %d\n\n",
		s.TotalFiles, s.Succeeded, s.Skipped, s.Failed, s.TotalRecords)

	w.WriteString(rule)
	w.WriteString("Files:\n\n")
	for i, f := range s.Files {
		status := "OK"
		switch {
		case f.Failed():
			status = "FAILED"
		case f.Skipped():
			status = "SKIPPED"
		}
		fmt.Fprintf(w, "#%d %s [%s]\n", i+1, f.Input, status)
		fmt.Fprintf(w, "  Format:         %s\n", f.Source)
		fmt.Fprintf(w, "  Records:        %d\n", f.Records)

		for _, t := range sortedFormats(f.Outputs) {
			fmt.Fprintf(w, "  %-16s%s\n", "Output ("+t.String()+"):", f.Outputs[t])
		}
		for _, t := range sortedFormats(f.TargetErrors) {
			fmt.Fprintf(w, "  %-16s%v\n", "Error ("+t.String()+"):", f.TargetErrors[t])
		}
		if f.Err != nil {
			fmt.Fprintf(w, "  Error:          %v\n", f.Err)
			writeParseDetail(w, f.Err)
		}
		if f.Validation != nil {
			for _, ve := range f.Validation.Errors {
				fmt.Fprintf(w, "  %s\n", ve.Error())
			}
		}
		w.WriteString("\n")
	}

	w.WriteString(rule)
	w.WriteString("End of Summary\n")

	if err := w.Flush(); err != nil {
		return "", errors.Wrap(err, "failed to flush summary file")
	}
	return path, nil
}

// writeParseDetail adds the record position of a parse failure.
func writeParseDetail(w *bufio.Writer, err error) {
	var pe *types.ParseError
	if !errors.As(err, &pe) || pe.Index == types.NoRecord {
		return
	}
	fmt.Fprintf(w, "  Record:         %d\n", pe.Index)
	if pe.Name != "" {
		fmt.Fprintf(w, "  Name:           %s\n", pe.Name)
	}
	if pe.Field != "" {
		fmt.Fprintf(w, "  Field:          %s\n", pe.Field)
	}
}

func title(m Mode) string {
	if m == ModeValidate {
		return "Validation"
	}
	return "Conversion"
}

func sortedFormats[V any](m map[types.Format]V) []types.Format {
	out := make([]types.Format, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
