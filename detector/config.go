package detector

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-vision/models"
)

// Default thresholds for the detection pipeline.
const (
	// DefaultConfidenceThreshold is the minimum best-class score for an
	// anchor to become a candidate.
	DefaultConfidenceThreshold float32 = 0.5
	// DefaultIoUThreshold is the overlap above which Non-Maximum Suppression
	// drops a candidate.
	DefaultIoUThreshold float32 = 0.3
	// DefaultMaxResults caps the detections returned per frame.
	DefaultMaxResults = 3
)

// Config represents the per-instance configuration of a Detector. Instances
// with different configs (e.g. 320 vs 640 input models) coexist safely;
// nothing here is process-wide.
type Config struct {
	// ConfidenceThreshold filters candidates below this best-class score.
	ConfidenceThreshold float32 `json:"confidence_threshold"`

	// IoUThreshold controls Non-Maximum Suppression overlap.
	IoUThreshold float32 `json:"iou_threshold"`

	// MaxResults caps the number of detections returned per frame.
	MaxResults int `json:"max_results"`

	// Classes is the ordered label table from model metadata.
	Classes []string `json:"classes"`
}

// DefaultConfig returns a configuration with the conventional thresholds and
// the built-in YOLO label table.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IoUThreshold:        DefaultIoUThreshold,
		MaxResults:          DefaultMaxResults,
		Classes:             models.YOLOClassNames,
	}
}

// Validate reports configuration contract violations.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence threshold must be in [0,1], got %f", c.ConfidenceThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return errors.Errorf("IoU threshold must be in [0,1], got %f", c.IoUThreshold)
	}
	if c.MaxResults < 0 {
		return errors.Errorf("max results must be non-negative, got %d", c.MaxResults)
	}
	return nil
}
