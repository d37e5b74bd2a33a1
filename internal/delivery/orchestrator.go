package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// ErrBatchFailed marks a run that completed but had per-file failures.
// Check with errors.Is; the wrapping error carries the counts.
var ErrBatchFailed = errors.New("delivery: batch completed with failures")

// Stage identifies which sub-step of per-file processing failed. The
// distinction matters: a relocation failure after a successful send implies
// a possible duplicate delivery if the file is retried later.
type Stage string

const (
	// StageSend covers open/read failures, payload construction, and the
	// gateway call itself.
	StageSend Stage = "send"
	// StageRelocate covers the post-send move into the sent directory.
	StageRelocate Stage = "relocate"
)

// FileResult is the tagged outcome of one file's processing.
type FileResult struct {
	Path  string
	Stage Stage
	Err   error // nil on full success
}

// Outcome aggregates one orchestration run. Counts are always reported to
// the caller regardless of whether the run as a whole is considered failed.
type Outcome struct {
	Sent    int
	Failed  int
	Results []FileResult
}

// TokenProvider yields one access token per batch. msauth.Manager is the
// real implementation.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Sender delivers a single file. delivery.Mailer is the real
// implementation; tests substitute fakes.
type Sender interface {
	SendFile(ctx context.Context, path string) error
}

// Recorder persists per-file outcomes. History is the real implementation.
// Recording is best-effort: a recorder failure never fails the run.
type Recorder interface {
	Record(ctx context.Context, res FileResult) error
}

// Orchestrator runs one delivery batch. Files are processed strictly
// sequentially in enumeration order, sharing a single access token; the
// mail gateway never sees more than one concurrent request from here.
type Orchestrator struct {
	sourceDir string
	sentDir   string
	auth      TokenProvider
	files     Filer
	// newSender builds the Sender once the batch token is known. Deferred
	// construction keeps authentication out of the empty-batch path.
	newSender func(accessToken string) Sender
	recorder  Recorder // optional
	logger    *slog.Logger
}

// NewOrchestrator wires an Orchestrator. recorder may be nil to disable
// history recording.
func NewOrchestrator(
	sourceDir, sentDir string,
	auth TokenProvider,
	files Filer,
	newSender func(accessToken string) Sender,
	recorder Recorder,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		sourceDir: sourceDir,
		sentDir:   sentDir,
		auth:      auth,
		files:     files,
		newSender: newSender,
		recorder:  recorder,
		logger:    logger,
	}
}

// Run executes one batch. The error is non-nil in exactly two cases:
// authentication failed (no files processed), or the batch completed with
// a nonzero failure count (wraps ErrBatchFailed). Per-file failures are
// absorbed, logged, and counted — they never terminate the loop early.
func (o *Orchestrator) Run(ctx context.Context) (Outcome, error) {
	var outcome Outcome

	files, err := o.files.List(o.sourceDir)
	if err != nil {
		return outcome, err
	}

	// An empty source directory is a no-op run: no authentication, no
	// listener, no credential write.
	if len(files) == 0 {
		o.logger.Info("no files to send", slog.String("source_dir", o.sourceDir))

		return outcome, nil
	}

	o.logger.Info("starting delivery batch",
		slog.Int("files", len(files)),
		slog.String("source_dir", o.sourceDir),
	)

	// One token, N sends. An authentication failure aborts before any
	// send is attempted.
	token, err := o.auth.AccessToken(ctx)
	if err != nil {
		return outcome, err
	}

	sender := o.newSender(token)

	for _, path := range files {
		res := o.processFile(ctx, sender, path)
		outcome.Results = append(outcome.Results, res)

		if res.Err == nil {
			outcome.Sent++
		} else {
			outcome.Failed++
		}

		o.record(ctx, res)
	}

	o.logger.Info("delivery batch complete",
		slog.Int("sent", outcome.Sent),
		slog.Int("failed", outcome.Failed),
	)

	if outcome.Failed > 0 {
		return outcome, fmt.Errorf("%w: %d of %d files failed", ErrBatchFailed, outcome.Failed, len(files))
	}

	return outcome, nil
}

// processFile sends one file and relocates it on success. The returned
// result's Stage says which sub-step failed; a relocation failure after a
// successful send is a recorded inconsistency, not retried or rolled back.
func (o *Orchestrator) processFile(ctx context.Context, sender Sender, path string) FileResult {
	name := filepath.Base(path)

	if err := sender.SendFile(ctx, path); err != nil {
		o.logger.Warn("send failed",
			slog.String("file", name),
			slog.String("error", err.Error()),
		)

		return FileResult{Path: path, Stage: StageSend, Err: err}
	}

	o.logger.Info("sent", slog.String("file", name))

	if err := o.files.Move(path, o.sentDir); err != nil {
		// The send already happened — the file stays behind, so a later
		// run would deliver it again.
		o.logger.Warn("relocation failed after successful send",
			slog.String("file", name),
			slog.String("error", err.Error()),
		)

		return FileResult{Path: path, Stage: StageRelocate, Err: err}
	}

	o.logger.Info("relocated to sent directory", slog.String("file", name))

	return FileResult{Path: path}
}

// record persists the result if a recorder is configured. Best-effort.
func (o *Orchestrator) record(ctx context.Context, res FileResult) {
	if o.recorder == nil {
		return
	}

	if err := o.recorder.Record(ctx, res); err != nil {
		o.logger.Warn("recording delivery history failed",
			slog.String("file", filepath.Base(res.Path)),
			slog.String("error", err.Error()),
		)
	}
}
