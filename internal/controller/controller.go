// Package controller holds the per-session application state machine:
// initial → loading → result | error, with reset returning to initial from
// any state.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"merabuchpan/internal/domain"
)

// Generator merges the two photos and returns the encoded composite.
type Generator interface {
	Generate(ctx context.Context, child, adult domain.Photo) (domain.GeneratedImage, error)
}

// Recorder receives one event per finished remote call.
type Recorder interface {
	Record(ctx context.Context, event domain.GenerationEvent) error
}

// Option customises a Controller.
type Option func(*Controller)

// WithRecorder attaches an analytics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger used for failures that are not surfaced verbatim.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the two selected photos and the state. It is safe for
// concurrent use.
type Controller struct {
	generator Generator
	recorder  Recorder
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	child    domain.Photo
	adult    domain.Photo
	state    domain.State
	image    domain.GeneratedImage
	errMsg   string
	sequence uint64
}

// New returns a controller in the initial state.
func New(generator Generator, opts ...Option) *Controller {
	c := &Controller{
		generator: generator,
		logger:    zerolog.Nop(),
		now:       time.Now,
		state:     domain.StateInitial,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectPhoto stores p in slot. Selection is only possible in the initial
// state; it reports whether the photo was taken. An empty photo is a no-op.
func (c *Controller) SelectPhoto(slot domain.Slot, p domain.Photo) bool {
	if p.IsZero() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.StateInitial {
		return false
	}
	switch slot {
	case domain.SlotChild:
		c.child = p
	case domain.SlotAdult:
		c.adult = p
	default:
		return false
	}
	return true
}

// Snapshot copies the current fields for rendering.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Snapshot{
		State:         c.state,
		Child:         c.child,
		Adult:         c.adult,
		GeneratedB64:  c.image.B64,
		GeneratedMIME: c.image.MIMEType,
		ErrorMessage:  c.errMsg,
		CanGenerate:   c.state == domain.StateInitial && !c.child.IsZero() && !c.adult.IsZero(),
	}
}

// Reset clears selections and results and returns to initial. A generation
// still running is orphaned; its completion is ignored.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.child = domain.Photo{}
	c.adult = domain.Photo{}
	c.image = domain.GeneratedImage{}
	c.errMsg = ""
	c.state = domain.StateInitial
	c.sequence++
}

// Job is one generate action that has already moved the controller to loading.
type Job struct {
	// Country is attached to the analytics event when set.
	Country string

	c       *Controller
	seq     uint64
	child   domain.Photo
	adult   domain.Photo
	started time.Time
}

// Begin validates the generate action and moves initial → loading.
//
// With either photo missing the controller moves to error with the
// missing-input message and ErrMissingPhotos is returned. Calling Begin while
// loading returns ErrGenerationInProgress; from result or error it returns
// ErrInvalidState. Neither changes the state.
func (c *Controller) Begin() (*Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case domain.StateLoading:
		return nil, domain.ErrGenerationInProgress
	case domain.StateInitial:
	default:
		return nil, domain.ErrInvalidState
	}
	if c.child.IsZero() || c.adult.IsZero() {
		c.image = domain.GeneratedImage{}
		c.errMsg = domain.MessageMissingPhotos
		c.state = domain.StateError
		return nil, domain.ErrMissingPhotos
	}
	c.sequence++
	c.image = domain.GeneratedImage{}
	c.errMsg = ""
	c.state = domain.StateLoading
	return &Job{
		c:       c,
		seq:     c.sequence,
		child:   c.child,
		adult:   c.adult,
		started: c.now(),
	}, nil
}

// Run calls the generator and applies the outcome. It returns the
// generator's error, if any, even when the outcome was discarded by a reset.
func (j *Job) Run(ctx context.Context) error {
	c := j.c
	img, err := c.generator.Generate(ctx, j.child, j.adult)
	if err == nil && img.B64 == "" {
		err = domain.NewGenerationError(errors.New("empty image payload"))
	}
	elapsed := c.now().Sub(j.started)

	c.record(ctx, j, err, elapsed)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sequence != j.seq || c.state != domain.StateLoading {
		c.logger.Debug().Uint64("seq", j.seq).Msg("discarding stale generation outcome")
		return err
	}
	if err != nil {
		c.logger.Error().Err(causeOf(err)).Dur("elapsed", elapsed).Msg("generation failed")
		c.image = domain.GeneratedImage{}
		c.errMsg = domain.UserMessage(err)
		c.state = domain.StateError
		return err
	}
	c.logger.Info().Dur("elapsed", elapsed).Str("mime", img.MIMEType).Int("bytes_b64", len(img.B64)).Msg("generation succeeded")
	c.image = img
	c.errMsg = ""
	c.state = domain.StateResult
	return nil
}

// Generate runs the whole action synchronously.
func (c *Controller) Generate(ctx context.Context) error {
	job, err := c.Begin()
	if err != nil {
		return err
	}
	return job.Run(ctx)
}

// causeOf returns the provider detail hidden behind a GenerationError.
func causeOf(err error) error {
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) && genErr.Cause != nil {
		return genErr.Cause
	}
	return err
}

func (c *Controller) record(ctx context.Context, j *Job, err error, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}
	outcome := domain.OutcomeSuccess
	if err != nil {
		outcome = domain.OutcomeFailure
	}
	event := domain.GenerationEvent{
		Outcome:   outcome,
		Duration:  elapsed,
		Country:   j.Country,
		CreatedAt: c.now().UTC(),
	}
	if recErr := c.recorder.Record(ctx, event); recErr != nil {
		c.logger.Warn().Err(recErr).Msg("record generation event")
	}
}
