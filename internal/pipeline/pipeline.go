package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sitegraph/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// report from previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical problems
	// should be logged and return nil.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps in order.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// now is the clock used to time steps.
	now func() time.Time

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithClock sets the clock used to time steps. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors
// are recorded in the report, but subsequent steps still execute.
// A failed archive should not prevent the graph from being written.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// Cancellation is checked before each step, not during one.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps complete (errors are recorded in report).
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			report.Cancelled = true
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"session", report.SessionID,
		)

		start := p.now()
		err := step.Do(ctx, report)
		elapsed := p.now().Sub(start)
		if report.StepDurations == nil {
			report.StepDurations = make(map[string]time.Duration, len(p.steps))
		}
		report.StepDurations[step.Name()] = elapsed

		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"session", report.SessionID,
				"elapsed", elapsed,
				"error", err,
			)

			report.Error = err
			report.ErrorMessage = err.Error()
			report.FailedSteps = append(report.FailedSteps, step.Name())

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"session", report.SessionID,
				"elapsed", elapsed,
			)
		}

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
