// Package inference - ONNX model execution.
package inference

import (
	"context"
	"image"
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-vision/models/postprocess"
)

// ONNXConfig configures the ONNX engine.
type ONNXConfig struct {
	// ModelPath is the model file to load.
	ModelPath string `json:"model_path"`

	// InputSize is the square side length the model consumes (e.g. 640).
	InputSize int `json:"input_size"`

	// NumClasses is the number of class-score channels the model emits,
	// matching the metadata label table.
	NumClasses int `json:"num_classes"`

	// InputName and OutputName are the model's tensor names.
	InputName  string `json:"input_name"`
	OutputName string `json:"output_name"`

	// IntraOpThreads and InterOpThreads size the runtime's thread pools;
	// zero uses the runtime default.
	IntraOpThreads int `json:"intra_op_threads"`
	InterOpThreads int `json:"inter_op_threads"`
}

// DefaultONNXConfig returns the configuration for a 640-input, 80-class
// model exported with the conventional tensor names.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		InputSize:      640,
		NumClasses:     80,
		InputName:      "images",
		OutputName:     "output0",
		IntraOpThreads: 4,
		InterOpThreads: 2,
	}
}

// ONNXEngine runs a detection model through onnxruntime. It is the single
// Engine implementation; the raw output it produces is consumed by the
// postprocess package.
type ONNXEngine struct {
	config  ONNXConfig
	session *Session
	anchors int
}

// NewONNXEngine loads the model and builds the bound input/output tensors.
//
// Arguments:
//   - config: Model location, input geometry, and runtime options.
//
// Returns:
//   - *ONNXEngine: The ready engine.
//   - error: An error if the shared library or model cannot be loaded.
func NewONNXEngine(config ONNXConfig) (*ONNXEngine, error) {
	if config.InputSize <= 0 {
		return nil, errors.Errorf("input size must be positive, got %d", config.InputSize)
	}
	if config.NumClasses <= 0 {
		return nil, errors.Errorf("class count must be positive, got %d", config.NumClasses)
	}

	libPath := GetSharedLibPath()
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "ONNX Runtime library not found at %s "+
			"(set %s to override)", libPath, SharedLibPathEnv)
	}
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "initializing ORT environment")
	}

	anchors := AnchorsForInputSize(config.InputSize)

	inputShape := ort.NewShape(1, 3, int64(config.InputSize), int64(config.InputSize))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}

	outputShape := ort.NewShape(1, int64(4+config.NumClasses), int64(anchors))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "creating ORT session options")
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(config.IntraOpThreads)
	options.SetInterOpNumThreads(config.InterOpThreads)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "creating ORT session")
	}

	return &ONNXEngine{
		config: config,
		session: &Session{
			Session: session,
			Input:   inputTensor,
			Output:  outputTensor,
		},
		anchors: anchors,
	}, nil
}

// InputSize reports the square side length the model consumes.
func (e *ONNXEngine) InputSize() int {
	return e.config.InputSize
}

// Predict runs one forward pass over the frame.
//
// The returned RawOutput is a view over the engine's output tensor and is
// valid until the next Predict call; callers decode it before resubmitting,
// which the detector's single-flight gate guarantees.
func (e *ONNXEngine) Predict(ctx context.Context, img image.Image) (*postprocess.RawOutput, error) {
	if e.session == nil {
		return nil, errors.New("engine is closed")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := PrepareInput(img, e.session.Input.GetData(), e.config.InputSize); err != nil {
		return nil, errors.Wrap(err, "preparing input")
	}

	if err := e.session.Session.Run(); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	return postprocess.NewRawOutput(e.session.Output.GetData(), e.config.NumClasses, e.anchors)
}

// Close releases the session and its tensors.
func (e *ONNXEngine) Close() error {
	if e.session != nil {
		e.session.Close()
		e.session = nil
	}
	return nil
}
