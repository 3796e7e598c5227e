// Package models - Detection label tables and model family definitions.
package models

import "fmt"

// ModelFamily identifies the label convention a model was trained against.
type ModelFamily string

const (
	// ModelFamilyYOLO is the 80 COCO classes, no background entry.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyCustom is a caller-supplied label set sourced from model
	// metadata.
	ModelFamilyCustom ModelFamily = "custom"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a family to its full ordered list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Family ModelFamily
	// Classes that are supported and mappable.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet builds a class set from an ordered label list, typically
// read out of model metadata by the inference-invocation layer. The position
// of each name becomes its class index.
func NewOutputClassSet(family ModelFamily, names []string) *OutputClassSet {
	set := &OutputClassSet{Family: family}
	set.Classes = make([]OutputClass, len(names))
	for i, name := range names {
		set.Classes[i] = OutputClass{Index: i, Name: name}
	}
	set.BuildNameIndexMap()
	return set
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *OutputClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// Len returns the number of classes in the set.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Names returns the ordered label list.
func (s *OutputClassSet) Names() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// GetName returns the class name for a given index.
func (s *OutputClassSet) GetName(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", fmt.Errorf("index %d out of range for family %q", idx, s.Family)
	}
	return s.Classes[idx].Name, nil
}

// GetIndex returns the class index for a given name.
func (s *OutputClassSet) GetIndex(name string) (int, error) {
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("name %q not found in family %q", name, s.Family)
	}
	return idx, nil
}

// YOLOClassNames is the 80-class COCO-derived label order used by the YOLO
// model family, kept as the built-in default for tools that are not handed
// metadata labels.
var YOLOClassNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// YOLOClasses is the built-in YOLO class set.
var YOLOClasses = NewOutputClassSet(ModelFamilyYOLO, YOLOClassNames)
