// Package detector - Stateful detection shell around the pure
// decode/suppress core.
package detector

import (
	"context"
	"image"
	"log"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-vision/inference"
	"github.com/nvr-ai/go-vision/models/postprocess"
	"github.com/nvr-ai/go-vision/profiler"
)

// State is the detector lifecycle state.
type State int32

const (
	// StateUninitialized means no engine has been built yet.
	StateUninitialized State = iota
	// StateReady means the engine is loaded and accepting frames.
	StateReady
	// StateFailed means the engine failed; the caller must observe this and
	// call Reinitialize. Recovery is never attempted inside the hot path.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy is returned when a detection pass is already in flight. The
	// admission queue has depth zero: callers drop the frame, they do not
	// retry or queue.
	ErrBusy = errors.New("detection pass already in flight")

	// ErrNotReady is returned when the detector is not in StateReady.
	ErrNotReady = errors.New("detector not ready")
)

// EngineFactory builds the inference engine. The detector owns engines it
// builds and closes them on Reinitialize/Close.
type EngineFactory func() (inference.Engine, error)

// Detector runs frames through an inference engine and the post-processing
// pipeline.
//
// Concurrency model: the core pipeline is pure and synchronous; the Detector
// adds a single-flight gate so at most one inference+post-processing pass is
// in flight at a time. A frame arriving during a pass is rejected with
// ErrBusy rather than queued, keeping the backlog bounded at zero on slow
// hardware. The returned detection list is an immutable snapshot safe to
// hand to any thread.
type Detector struct {
	config    Config
	newEngine EngineFactory

	engine   inference.Engine
	state    atomic.Int32
	inFlight atomic.Bool

	latency *profiler.LatencyTracker
}

// New builds a detector and eagerly initializes its engine.
//
// Arguments:
//   - config: Thresholds, result cap, and label table.
//   - factory: Builds the inference engine; also used by Reinitialize.
//
// Returns:
//   - *Detector: The ready detector.
//   - error: A config violation or the engine build failure.
func New(config Config, factory EngineFactory) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, errors.New("engine factory is required")
	}

	d := &Detector{
		config:    config,
		newEngine: factory,
		latency:   profiler.NewLatencyTracker(0),
	}
	if err := d.initialize(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Detector) initialize() error {
	engine, err := d.newEngine()
	if err != nil {
		d.state.Store(int32(StateFailed))
		return errors.Wrap(err, "building engine")
	}
	d.engine = engine
	d.state.Store(int32(StateReady))
	return nil
}

// State returns the current lifecycle state.
func (d *Detector) State() State {
	return State(d.state.Load())
}

// Reinitialize rebuilds the engine after the caller observed StateFailed.
// It is a no-op on a ready detector and rejects with ErrBusy while a pass is
// in flight.
func (d *Detector) Reinitialize() error {
	if d.State() == StateReady {
		return nil
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer d.inFlight.Store(false)

	if d.engine != nil {
		if err := d.engine.Close(); err != nil {
			log.Printf("closing failed engine: %v", err)
		}
		d.engine = nil
	}
	return d.initialize()
}

// Detect runs one frame through the pipeline: preprocess + forward pass in
// the engine, then decode and Non-Maximum Suppression.
//
// Arguments:
//   - ctx: Bounds the engine call; cancellation does not fail the detector.
//   - img: The frame; its bounds define the original coordinate frame the
//     returned boxes are normalized against.
//
// Returns:
//   - []postprocess.Result: At most MaxResults detections ordered by
//     descending confidence; an immutable snapshot.
//   - error: ErrNotReady, ErrBusy, a context error, an engine failure
//     (detector transitions to StateFailed), or a decode contract violation.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]postprocess.Result, error) {
	if state := d.State(); state != StateReady {
		return nil, errors.Wrapf(ErrNotReady, "state %s", state)
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer d.inFlight.Store(false)

	// Re-check under the gate: Close may have torn the engine down between
	// the state check above and the gate acquisition.
	if state := d.State(); state != StateReady {
		return nil, errors.Wrapf(ErrNotReady, "state %s", state)
	}

	start := time.Now()

	raw, err := d.engine.Predict(ctx, img)
	if err != nil {
		// A cancelled context is the caller's doing, not an engine fault;
		// everything else marks the detector failed until Reinitialize.
		if ctx.Err() == nil {
			d.state.Store(int32(StateFailed))
			return nil, errors.Wrap(err, "engine failure")
		}
		return nil, err
	}

	bounds := img.Bounds()
	candidates, err := postprocess.Decode(raw, postprocess.DecodeConfig{
		ConfidenceThreshold: d.config.ConfidenceThreshold,
		Classes:             d.config.Classes,
		InputSize:           d.engine.InputSize(),
		OriginalWidth:       bounds.Dx(),
		OriginalHeight:      bounds.Dy(),
	})
	if err != nil {
		return nil, err
	}

	results := postprocess.ApplyGreedyNMS(candidates, &postprocess.NMSConfig{
		IoUThreshold: d.config.IoUThreshold,
		MaxResults:   d.config.MaxResults,
	})

	d.latency.Record(time.Since(start))
	return results, nil
}

// LatencyStats returns pass-latency statistics for the detector.
func (d *Detector) LatencyStats() profiler.Stats {
	return d.latency.Stats()
}

// Close releases the engine. It waits for any in-flight pass to finish
// before tearing the engine down, so a Detect already past admission always
// completes against a live engine. The detector transitions to
// StateUninitialized.
func (d *Detector) Close() error {
	for !d.inFlight.CompareAndSwap(false, true) {
		time.Sleep(time.Millisecond)
	}
	defer d.inFlight.Store(false)

	d.state.Store(int32(StateUninitialized))
	if d.engine == nil {
		return nil
	}
	err := d.engine.Close()
	d.engine = nil
	return err
}
