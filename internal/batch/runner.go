// =============================================================================
// Geo Format Converter - Batch Runner
// =============================================================================
//
// The runner drives the conversion engine over a file or a directory tree.
//
// PROCESSING FLOW (per file):
//   1. Detect the source format from the file extension
//   2. Drop targets equal to the source (when SkipSameFormat is set)
//   3. Read the file and convert it once into every remaining target
//   4. Write each successful output; log each failed target
//
// Files are processed one after another. A failed file stops the run unless
// ContinueOnError is set. Any failed file makes Run return an error.
//
// =============================================================================

package batch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ginjaninja78/geo-format-converter/internal/converter"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
	"github.com/ginjaninja78/geo-format-converter/internal/validation"
)

// ErrFilesFailed is returned by Run and Check when at least one file failed.
var ErrFilesFailed = errors.New("one or more files failed")

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls a batch run.
type Options struct {
	// OutputDir receives the outputs. Empty writes next to each input.
	OutputDir string

	// NameFormat is the output file name format (see OutputFileName).
	NameFormat string

	// SkipSameFormat drops targets equal to the input format.
	SkipSameFormat bool

	// ContinueOnError keeps going after a failed file.
	ContinueOnError bool

	// SummaryReport writes a text report at the end of Run.
	SummaryReport bool

	// Validation configures Check.
	Validation validation.ValidationOptions

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the options matching the default configuration.
func DefaultOptions() Options {
	return Options{
		NameFormat:      "{stem}.{ext}",
		SkipSameFormat:  true,
		ContinueOnError: true,
		Validation:      validation.DefaultValidationOptions(),
		Now:             time.Now,
	}
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner converts files with one shared Converter.
type Runner struct {
	conv   *converter.Converter
	opts   Options
	logger *slog.Logger
}

// NewRunner returns a Runner. A nil logger discards log output.
func NewRunner(conv *converter.Converter, opts Options, logger *slog.Logger) *Runner {
	if opts.NameFormat == "" {
		opts.NameFormat = DefaultOptions().NameFormat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{conv: conv, opts: opts, logger: logger}
}

// Run converts every input under root into targets.
func (r *Runner) Run(ctx context.Context, root string, targets []types.Format) (*Summary, error) {
	if len(targets) == 0 {
		return nil, errors.New("no target format selected")
	}
	files, err := Discover(root)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Mode: ModeConvert, Root: root, StartTime: r.opts.Now()}
	r.logger.Info("starting conversion", "root", root, "files", len(files), "targets", formatNames(targets))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return r.finish(summary, err)
		}

		res := r.convertFile(root, path, targets)
		summary.add(res)

		if res.Failed() && !r.opts.ContinueOnError {
			r.logger.Warn("stopping after failed file", "file", path)
			break
		}
	}

	return r.finish(summary, nil)
}

// Check parses and validates every input under root without writing
// outputs.
func (r *Runner) Check(ctx context.Context, root string) (*Summary, error) {
	files, err := Discover(root)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Mode: ModeValidate, Root: root, StartTime: r.opts.Now()}
	validator := validation.NewValidatorWithOptions(r.opts.Validation)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return r.finish(summary, err)
		}

		res := r.checkFile(validator, path)
		summary.add(res)

		if res.Failed() && !r.opts.ContinueOnError {
			break
		}
	}

	return r.finish(summary, nil)
}

// finish stamps the summary, writes the optional report and turns failed
// files into an error.
func (r *Runner) finish(summary *Summary, cause error) (*Summary, error) {
	summary.EndTime = r.opts.Now()

	r.logger.Info("run complete",
		"files", summary.TotalFiles,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"records", summary.TotalRecords,
		"elapsed", summary.EndTime.Sub(summary.StartTime),
	)

	if r.opts.SummaryReport {
		dir := r.reportDir(summary.Root)
		path, err := WriteSummaryReport(*summary, dir)
		if err != nil {
			cause = errors.Join(cause, err)
		} else {
			summary.ReportPath = path
			r.logger.Info("summary report written", "path", path)
		}
	}

	if cause != nil {
		return summary, cause
	}
	if summary.Failed > 0 {
		return summary, errors.Wrapf(ErrFilesFailed, "%d of %d files failed", summary.Failed, summary.TotalFiles)
	}
	return summary, nil
}

func (r *Runner) reportDir(root string) string {
	if r.opts.OutputDir != "" {
		return r.opts.OutputDir
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return filepath.Dir(root)
	}
	return root
}

// =============================================================================
// SINGLE FILE PROCESSING
// =============================================================================

func (r *Runner) convertFile(root, path string, targets []types.Format) FileResult {
	start := time.Now()
	res := FileResult{Input: path, Outputs: map[types.Format]string{}}
	log := r.logger.With("file", path)

	// =========================================================================
	// STEP 1: DETECT SOURCE FORMAT
	// =========================================================================

	source, err := types.FormatFromExtension(path)
	if err != nil {
		res.Err = err
		log.Error("unsupported input", "error", err)
		return res
	}
	res.Source = source

	// =========================================================================
	// STEP 2: SELECT TARGETS
	// =========================================================================

	var wanted []types.Format
	for _, t := range targets {
		if r.opts.SkipSameFormat && t == source {
			res.SkippedTargets = append(res.SkippedTargets, t)
			log.Debug("target skipped, same as input", "target", t)
			continue
		}
		wanted = append(wanted, t)
	}
	if len(wanted) == 0 {
		res.Duration = time.Since(start)
		log.Info("nothing to do, every target matches the input format")
		return res
	}

	// =========================================================================
	// STEP 3: CONVERT
	// =========================================================================

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = errors.Wrap(err, "failed to read input file")
		log.Error("read failed", "error", err)
		return res
	}

	conv, err := r.conv.ConvertDetailed(data, source, wanted)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		log.Error("conversion failed", "error", err)
		return res
	}
	res.Records = conv.Records

	// =========================================================================
	// STEP 4: WRITE OUTPUTS
	// =========================================================================

	now := r.opts.Now()
	for _, t := range wanted {
		if f, ok := conv.Failures[t]; ok {
			res.addFailure(t, f)
			log.Error("target failed", "target", t, "error", f)
			continue
		}

		out, err := OutputPath(root, path, r.opts.OutputDir, r.opts.NameFormat, t, now)
		if err == nil {
			err = writeOutput(path, out, conv.Outputs[t])
		}
		if err != nil {
			res.addFailure(t, err)
			log.Error("write failed", "target", t, "error", err)
			continue
		}
		res.Outputs[t] = out
		log.Info("converted", "target", t, "output", out, "records", conv.Records)
	}

	res.Duration = time.Since(start)
	return res
}

func (r *Runner) checkFile(validator *validation.Validator, path string) FileResult {
	start := time.Now()
	res := FileResult{Input: path}
	log := r.logger.With("file", path)

	source, err := types.FormatFromExtension(path)
	if err != nil {
		res.Err = err
		log.Error("unsupported input", "error", err)
		return res
	}
	res.Source = source

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = errors.Wrap(err, "failed to read input file")
		log.Error("read failed", "error", err)
		return res
	}

	coll, err := r.conv.ParseOnly(data, source)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		log.Error("parse failed", "error", err)
		return res
	}
	res.Records = len(coll)

	result := validator.ValidateAll(coll)
	res.Validation = result
	for _, ve := range result.Errors {
		if ve.Severity == validation.SeverityError {
			log.Error("validation error", "error", ve)
		} else {
			log.Warn("validation warning", "error", ve)
		}
	}
	if !result.IsValid {
		res.Err = errors.Newf("validation failed: %d errors, %d warnings", result.ErrorCount, result.WarningCount)
	}

	res.Duration = time.Since(start)
	log.Info("checked", "format", source, "records", res.Records, "warnings", result.WarningCount)
	return res
}

func formatNames(fs []types.Format) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return names
}
