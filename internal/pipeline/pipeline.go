// Package pipeline drives one file through its full lifecycle: match,
// duplicate check, archive, parse/validate, stage, audit, merge, and
// cleanup, with a durable run log and owner/operator notification on
// failure (spec §4.9).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fileloader/internal/audit"
	"fileloader/internal/config"
	"fileloader/internal/db"
	"fileloader/internal/dlq"
	"fileloader/internal/fileerrors"
	"fileloader/internal/logging"
	"fileloader/internal/merge"
	"fileloader/internal/model"
	"fileloader/internal/notify"
	"fileloader/internal/reader"
	"fileloader/internal/retrypolicy"
	"fileloader/internal/runlog"
	"fileloader/internal/sourceregistry"
	"fileloader/internal/stage"
	"fileloader/internal/validate"
)

// Pipeline processes individual files against a shared RunConfig, database
// pool, source registry, and notification sinks.
type Pipeline struct {
	Config   *config.RunConfig
	Pool     *db.Pool
	Registry *sourceregistry.Registry
	RunLogs  *runlog.Store
	DLQ      *dlq.Store
	Owner    notify.OwnerNotifier
	Operator notify.OperatorNotifier
}

// Outcome summarizes one file's run for the Worker Pool's reporting.
type Outcome struct {
	FileName string
	Success  bool
	Skipped  bool
	Kind     fileerrors.Kind
	Err      error
}

// Process runs the full lifecycle for one intake file path.
func (p *Pipeline) Process(ctx context.Context, path string) Outcome {
	fileName := filepath.Base(path)
	out := Outcome{FileName: fileName}

	src, matchErr := p.Registry.Match(fileName)
	var noMatch *sourceregistry.ErrNoMatch
	if errors.As(matchErr, &noMatch) {
		logging.For(logging.Fields{"file": fileName}).Warn("no source matches file; skipping")
		out.Skipped = true
		return out
	}

	log, err := p.RunLogs.Start(ctx, fileName)
	if err != nil {
		out.Err = err
		out.Kind = fileerrors.KindOf(err)
		return out
	}

	var stageLoader *stage.Loader
	defer func() {
		if stageLoader != nil {
			cleanupCtx := context.Background()
			if err := stageLoader.DropTable(cleanupCtx); err != nil {
				logging.For(logging.Fields{"file": fileName}).Warn("failed to drop stage table during cleanup: " + err.Error())
			}
		}
		log.SetSuccess(out.Success || out.Skipped)
		if out.Err != nil {
			log.ErrorType = string(out.Kind)
		}
		if err := p.RunLogs.Finish(context.Background(), log); err != nil {
			logging.For(logging.Fields{"file": fileName}).Warn("failed to finalize run log: " + err.Error())
		}
		if out.Err != nil {
			p.notify(ctx, fileName, out.Kind, out.Err)
		}
	}()

	if matchErr != nil {
		out.Err = classifyRegistryErr(matchErr)
		out.Kind = fileerrors.KindOf(out.Err)
		return out
	}

	dup, err := p.isDuplicate(ctx, fileName, src.TargetTable)
	if err != nil {
		out.Err = err
		out.Kind = fileerrors.KindOf(err)
		return out
	}
	if dup {
		if err := p.moveTo(path, p.Config.DuplicatesDir); err != nil {
			out.Err = fileerrors.Wrap(fileerrors.KindTransientIO, err, "move duplicate %s", fileName)
			out.Kind = fileerrors.KindOf(out.Err)
			return out
		}
		log.DuplicateSkipped = true
		out.Skipped = true
		return out
	}

	if err := p.archive(path); err != nil {
		out.Err = err
		out.Kind = fileerrors.KindOf(err)
		return out
	}

	outcomes, validCount, total, err := p.parseAndValidate(path, *src)
	if err != nil {
		out.Err = err
		out.Kind = fileerrors.KindOf(err)
		return out
	}
	log.AddRecordsProcessed(int64(total))
	log.AddValidationErrors(int64(total - validCount))

	if total > 0 {
		errRate := float64(total-validCount) / float64(total)
		if errRate > src.ValidationErrorThreshold {
			out.Err = fileerrors.New(fileerrors.KindValidationThresholdExceeded,
				"source %q: validation error rate %.4f exceeds threshold %.4f (%d/%d rows failed); sample errors: %s",
				src.Name, errRate, src.ValidationErrorThreshold, total-validCount, total,
				formatFailureSample(sampleFailures(outcomes, validationSampleSize)))
			out.Kind = fileerrors.KindOf(out.Err)
			return out
		}
	}

	fileStem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	stageLoader = stage.NewLoader(p.Pool, *src, fileStem)

	err = retrypolicy.Default.Do(ctx, "create_stage_table", func(ctx context.Context) error {
		return stageLoader.CreateTable(ctx)
	})
	if err != nil {
		out.Err = err
		out.Kind = fileerrors.KindOf(err)
		return out
	}

	var stagedCount int64
	err = retrypolicy.Default.Do(ctx, "insert_valid_rows", func(ctx context.Context) error {
		n, err := stageLoader.InsertValid(ctx, collectValid(outcomes, fileName, log.ID))
		stagedCount = n
		return err
	})
	if err != nil {
		out.Err = err
		out.Kind = fileerrors.KindOf(err)
		return out
	}
	log.RecordsStageLoaded = ptrInt64(stagedCount)

	for _, failed := range collectFailed(outcomes, fileName, log.ID, src.TargetTable) {
		if err := p.DLQ.Insert(ctx, failed); err != nil {
			out.Err = fileerrors.Wrap(fileerrors.KindTransientDB, err, "insert dead letter row for %s", fileName)
			out.Kind = fileerrors.KindOf(out.Err)
			return out
		}
	}

	auditor := audit.New(p.Pool, *src, stageLoader.StageTable)
	err = retrypolicy.Default.Do(ctx, "audit", func(ctx context.Context) error {
		return auditor.Run(ctx)
	})
	if err != nil {
		out.Err = err
		out.Kind = fileerrors.KindOf(err)
		return out
	}

	merger := merge.New(p.Pool, *src, stageLoader.StageTable)
	var mergeResult merge.Result
	err = retrypolicy.Default.Do(ctx, "merge", func(ctx context.Context) error {
		r, err := merger.Run(ctx)
		mergeResult = r
		return err
	})
	if err != nil {
		out.Err = err
		out.Kind = fileerrors.KindOf(err)
		return out
	}
	log.TargetInserts = ptrInt64(mergeResult.Inserts)
	log.TargetUpdates = ptrInt64(mergeResult.Updates)

	if n, err := p.DLQ.CleanupPriorRuns(ctx, fileName, log.ID); err != nil {
		logging.For(logging.Fields{"file": fileName}).Warn("dead letter cleanup failed: " + err.Error())
	} else if n > 0 {
		logging.For(logging.Fields{"file": fileName, "rows": n}).Info("cleaned up dead letter rows from prior runs")
	}

	out.Success = true
	return out
}

func classifyRegistryErr(err error) error {
	var noMatch *sourceregistry.ErrNoMatch
	if errors.As(err, &noMatch) {
		return fileerrors.Wrap(fileerrors.KindCodeDefect, err, "no source matches file")
	}
	var ambiguous *sourceregistry.ErrAmbiguous
	if errors.As(err, &ambiguous) {
		return fileerrors.Wrap(fileerrors.KindAmbiguousSource, err, "file matches multiple sources")
	}
	return fileerrors.Wrap(fileerrors.KindCodeDefect, err, "source registry lookup failed")
}

// isDuplicate reports whether fileName has already landed in targetTable
// (spec §4.9 step 2: `EXISTS(SELECT 1 FROM target WHERE source_filename =
// :name)`), wrapped in the standard retry policy since it is a plain read
// against the target database (spec §4.8).
func (p *Pipeline) isDuplicate(ctx context.Context, fileName, targetTable string) (bool, error) {
	query := fmt.Sprintf(
		"SELECT CASE WHEN EXISTS(SELECT 1 FROM %s WHERE %s = %s) THEN 1 ELSE 0 END",
		p.Pool.Dialect.QuoteIdent(targetTable), p.Pool.Dialect.QuoteIdent("source_filename"), p.Pool.Dialect.Placeholder(1),
	)

	var flag int
	err := retrypolicy.Default.Do(ctx, "duplicate_file_check", func(ctx context.Context) error {
		return p.Pool.SQL.QueryRowContext(ctx, query, fileName).Scan(&flag)
	})
	if err != nil {
		return false, fileerrors.Wrap(fileerrors.KindTransientDB, err, "check duplicate file %s against %s", fileName, targetTable)
	}
	return flag == 1, nil
}

func (p *Pipeline) archive(path string) error {
	dst := filepath.Join(p.Config.ArchiveDir, filepath.Base(path))
	return retrypolicy.Default.Do(context.Background(), "archive", func(ctx context.Context) error {
		if err := copyFile(path, dst); err != nil {
			return fileerrors.Wrap(fileerrors.KindTransientIO, err, "archive %s", path)
		}
		return nil
	})
}

func (p *Pipeline) moveTo(path, dir string) error {
	dst := filepath.Join(dir, filepath.Base(path))
	if err := copyFile(path, dst); err != nil {
		return err
	}
	return os.Remove(path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func (p *Pipeline) parseAndValidate(path string, src config.SourceSpec) ([]model.RecordOutcome, int, int, error) {
	r, err := reader.Open(path, src)
	if err != nil {
		return nil, 0, 0, classifyReaderErr(err)
	}
	defer r.Close()

	v := validate.New(src)
	var outcomes []model.RecordOutcome
	validCount, total := 0, 0

	for rowNum := 1; ; rowNum++ {
		rec, ok, err := r.Next()
		if err != nil {
			return nil, 0, 0, fileerrors.Wrap(fileerrors.KindTransientIO, err, "read row %d of %s", rowNum, path)
		}
		if !ok {
			break
		}
		total++
		outcome := v.Validate(rec, rowNum)
		if outcome.Valid != nil {
			validCount++
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, validCount, total, nil
}

func classifyReaderErr(err error) error {
	var missingHeader *reader.MissingHeaderError
	if errors.As(err, &missingHeader) {
		return fileerrors.Wrap(fileerrors.KindMissingHeader, err, "missing header")
	}
	var missingColumns *reader.MissingColumnsError
	if errors.As(err, &missingColumns) {
		return fileerrors.Wrap(fileerrors.KindMissingColumns, err, "missing columns")
	}
	return fileerrors.Wrap(fileerrors.KindTransientIO, err, "open file for reading")
}

func collectValid(outcomes []model.RecordOutcome, fileName string, runLogID int64) []model.ValidRow {
	var rows []model.ValidRow
	for _, o := range outcomes {
		if o.Valid != nil {
			row := *o.Valid
			row.SourceFilename = fileName
			row.RunLogID = runLogID
			rows = append(rows, row)
		}
	}
	return rows
}

// validationSampleSize bounds how many failed rows are rendered into a
// ValidationThresholdExceeded message (spec §4.9 step 4: "a sample of up
// to 5 validation errors, first occurrences").
const validationSampleSize = 5

func sampleFailures(outcomes []model.RecordOutcome, limit int) []model.FailedRow {
	var sample []model.FailedRow
	for _, o := range outcomes {
		if o.Failed == nil {
			continue
		}
		sample = append(sample, *o.Failed)
		if len(sample) >= limit {
			break
		}
	}
	return sample
}

func formatFailureSample(sample []model.FailedRow) string {
	parts := make([]string, len(sample))
	for i, f := range sample {
		cols := make([]string, len(f.Errors))
		for j, e := range f.Errors {
			cols[j] = fmt.Sprintf("%s: %s", e.ColumnName, e.ErrorMessage)
		}
		parts[i] = fmt.Sprintf("row %d {%s}", f.FileRowNumber, strings.Join(cols, ", "))
	}
	return strings.Join(parts, "; ")
}

func collectFailed(outcomes []model.RecordOutcome, fileName string, runLogID int64, targetTable string) []model.DeadLetterRow {
	var rows []model.DeadLetterRow
	for _, o := range outcomes {
		if o.Failed != nil {
			rows = append(rows, model.DeadLetterRow{
				SourceFilename:   fileName,
				FileRowNumber:    o.Failed.FileRowNumber,
				FileRecordData:   o.Failed.Record,
				ValidationErrors: o.Failed.Errors,
				RunLogID:         runLogID,
				TargetTableName:  targetTable,
			})
		}
	}
	return rows
}

func (p *Pipeline) notify(ctx context.Context, fileName string, kind fileerrors.Kind, err error) {
	notice := notify.Notice{FileName: fileName, Kind: string(kind), Message: err.Error()}
	switch kind.Lane() {
	case fileerrors.LaneOwner:
		if p.Owner != nil {
			if src, matchErr := p.Registry.Match(fileName); matchErr == nil {
				notice.SourceName = src.Name
				if nerr := p.Owner.NotifyOwner(ctx, src.NotificationRecipients, notice); nerr != nil {
					logging.For(logging.Fields{"file": fileName}).Warn("owner notification failed: " + nerr.Error())
				}
			}
		}
	case fileerrors.LaneOperator:
		if p.Operator != nil {
			if nerr := p.Operator.NotifyOperator(ctx, notice); nerr != nil {
				logging.For(logging.Fields{"file": fileName}).Warn("operator notification failed: " + nerr.Error())
			}
		}
	}
}

func ptrInt64(v int64) *int64 { return &v }
