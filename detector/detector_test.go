package detector

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-vision/inference"
	"github.com/nvr-ai/go-vision/models/postprocess"
)

// fakeEngine is a controllable inference.Engine for exercising the detector
// shell without an ONNX runtime.
type fakeEngine struct {
	inputSize int
	raw       *postprocess.RawOutput
	err       error

	// When set, Predict signals entered and then waits for release.
	entered chan struct{}
	release chan struct{}

	predicts int
	closed   bool
}

func (f *fakeEngine) Predict(ctx context.Context, _ image.Image) (*postprocess.RawOutput, error) {
	f.predicts++
	if f.entered != nil {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func (f *fakeEngine) InputSize() int { return f.inputSize }

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

// twoAnchorOutput decodes (with a 100x100 frame and 100 input size) to the
// overlapping boxes (0.1,0.1,0.5,0.5)@0.9 and (0.12,0.12,0.52,0.52)@0.6,
// both class 1.
func twoAnchorOutput(t *testing.T) *postprocess.RawOutput {
	t.Helper()

	const anchors = 2
	channels := [][2]float32{
		{30, 32}, // cx
		{30, 32}, // cy
		{40, 40}, // w
		{40, 40}, // h
		{0.1, 0.1},
		{0.9, 0.6},
		{0.2, 0.2},
	}
	data := make([]float32, len(channels)*anchors)
	for c, column := range channels {
		data[c*anchors] = column[0]
		data[c*anchors+1] = column[1]
	}

	raw, err := postprocess.NewRawOutput(data, 3, anchors)
	require.NoError(t, err)
	return raw
}

func testConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		IoUThreshold:        0.3,
		MaxResults:          3,
		Classes:             []string{"person", "car", "dog"},
	}
}

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 100, 100))
}

func newTestDetector(t *testing.T, engine *fakeEngine) *Detector {
	t.Helper()

	d, err := New(testConfig(), func() (inference.Engine, error) {
		return engine, nil
	})
	require.NoError(t, err)
	require.Equal(t, StateReady, d.State())
	return d
}

func TestNewValidatesConfig(t *testing.T) {
	factory := func() (inference.Engine, error) { return &fakeEngine{}, nil }

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative confidence", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"IoU above one", func(c *Config) { c.IoUThreshold = 2 }},
		{"negative max results", func(c *Config) { c.MaxResults = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, factory)
			assert.Error(t, err)
		})
	}
}

func TestNewRequiresFactory(t *testing.T) {
	_, err := New(testConfig(), nil)
	assert.Error(t, err)
}

func TestNewEngineFactoryFailure(t *testing.T) {
	_, err := New(testConfig(), func() (inference.Engine, error) {
		return nil, errors.New("no runtime")
	})
	assert.Error(t, err)
}

func TestDetectPipeline(t *testing.T) {
	engine := &fakeEngine{inputSize: 100, raw: twoAnchorOutput(t)}
	d := newTestDetector(t, engine)
	defer d.Close()

	results, err := d.Detect(context.Background(), testFrame())
	require.NoError(t, err)

	// The lower-confidence overlapping box is suppressed.
	require.Len(t, results, 1)
	assert.Equal(t, float32(0.9), results[0].Score)
	assert.Equal(t, "car", results[0].Label)
	assert.InDelta(t, 0.1, results[0].Box.X1, 1e-5)
	assert.InDelta(t, 0.5, results[0].Box.X2, 1e-5)

	stats := d.LatencyStats()
	assert.Equal(t, int64(1), stats.Count)
}

func TestDetectSingleFlight(t *testing.T) {
	engine := &fakeEngine{
		inputSize: 100,
		raw:       twoAnchorOutput(t),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	d := newTestDetector(t, engine)
	defer d.Close()

	firstDone := make(chan error, 1)
	go func() {
		_, err := d.Detect(context.Background(), testFrame())
		firstDone <- err
	}()

	// Wait until the first pass holds the gate.
	<-engine.entered

	// A frame arriving mid-pass is rejected, not queued.
	_, err := d.Detect(context.Background(), testFrame())
	assert.ErrorIs(t, err, ErrBusy)

	close(engine.release)
	require.NoError(t, <-firstDone)

	// The gate is free again after the pass completes.
	engine.entered = nil
	_, err = d.Detect(context.Background(), testFrame())
	assert.NoError(t, err)
}

func TestDetectEngineFailureRequiresReinitialize(t *testing.T) {
	engine := &fakeEngine{inputSize: 100, err: errors.New("runtime crashed")}
	builds := 0
	d, err := New(testConfig(), func() (inference.Engine, error) {
		builds++
		if builds == 1 {
			return engine, nil
		}
		return &fakeEngine{inputSize: 100, raw: twoAnchorOutput(t)}, nil
	})
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Detect(context.Background(), testFrame())
	require.Error(t, err)
	assert.Equal(t, StateFailed, d.State())

	// No implicit recreation: further frames are rejected until the caller
	// reinitializes.
	_, err = d.Detect(context.Background(), testFrame())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 1, engine.predicts)

	require.NoError(t, d.Reinitialize())
	assert.Equal(t, StateReady, d.State())
	assert.True(t, engine.closed)

	_, err = d.Detect(context.Background(), testFrame())
	assert.NoError(t, err)
}

func TestDetectCancelledContextDoesNotFailDetector(t *testing.T) {
	engine := &fakeEngine{inputSize: 100, raw: twoAnchorOutput(t)}
	d := newTestDetector(t, engine)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Detect(ctx, testFrame())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateReady, d.State())
}

func TestReinitializeNoopWhenReady(t *testing.T) {
	engine := &fakeEngine{inputSize: 100, raw: twoAnchorOutput(t)}
	d := newTestDetector(t, engine)
	defer d.Close()

	require.NoError(t, d.Reinitialize())
	assert.False(t, engine.closed)
}

func TestCloseReleasesEngine(t *testing.T) {
	engine := &fakeEngine{inputSize: 100, raw: twoAnchorOutput(t)}
	d := newTestDetector(t, engine)

	require.NoError(t, d.Close())
	assert.True(t, engine.closed)
	assert.Equal(t, StateUninitialized, d.State())

	_, err := d.Detect(context.Background(), testFrame())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCloseWaitsForInFlightPass(t *testing.T) {
	engine := &fakeEngine{
		inputSize: 100,
		raw:       twoAnchorOutput(t),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	d := newTestDetector(t, engine)

	passDone := make(chan error, 1)
	go func() {
		_, err := d.Detect(context.Background(), testFrame())
		passDone <- err
	}()

	// Wait until the pass is inside the engine.
	<-engine.entered

	// Close must block until the pass drains rather than tear the engine
	// out from under Predict.
	closeDone := make(chan error, 1)
	go func() { closeDone <- d.Close() }()

	select {
	case <-closeDone:
		t.Fatal("Close returned while a pass was still in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(engine.release)
	require.NoError(t, <-passDone)
	require.NoError(t, <-closeDone)

	assert.True(t, engine.closed)
	assert.Equal(t, StateUninitialized, d.State())

	_, err := d.Detect(context.Background(), testFrame())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestDetectRejectsMismatchedLabelTable(t *testing.T) {
	engine := &fakeEngine{inputSize: 100, raw: twoAnchorOutput(t)}
	cfg := testConfig()
	cfg.Classes = []string{"person"} // tensor carries 3 class channels

	d, err := New(cfg, func() (inference.Engine, error) { return engine, nil })
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Detect(context.Background(), testFrame())
	assert.Error(t, err)
	// A decode contract violation is an integration bug, not an engine
	// fault; the detector stays ready.
	assert.Equal(t, StateReady, d.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float32(0.5), cfg.ConfidenceThreshold)
	assert.Equal(t, float32(0.3), cfg.IoUThreshold)
	assert.Equal(t, 3, cfg.MaxResults)
	assert.Len(t, cfg.Classes, 80)
	assert.NoError(t, cfg.Validate())
}

func TestLatencyStatsAccumulate(t *testing.T) {
	engine := &fakeEngine{inputSize: 100, raw: twoAnchorOutput(t)}
	d := newTestDetector(t, engine)
	defer d.Close()

	for i := 0; i < 3; i++ {
		_, err := d.Detect(context.Background(), testFrame())
		require.NoError(t, err)
	}

	stats := d.LatencyStats()
	assert.Equal(t, int64(3), stats.Count)
	assert.GreaterOrEqual(t, stats.Max, stats.Min)
	assert.Less(t, stats.Avg, time.Second)
}
