// Command detect runs the detection pipeline over image files and prints the
// ranked results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/nvr-ai/go-vision/detector"
	"github.com/nvr-ai/go-vision/inference"
	"github.com/nvr-ai/go-vision/models"
	"github.com/nvr-ai/go-vision/util"
)

func main() {
	var (
		modelPath  string
		imagePath  string
		dirPath    string
		labelsPath string
		confidence float64
		iou        float64
		maxResults int
		inputSize  int
	)
	flag.StringVar(&modelPath, "model", "", "Path to detection ONNX model file")
	flag.StringVar(&imagePath, "image", "", "Path to a single image file")
	flag.StringVar(&dirPath, "dir", "", "Path to a directory of frame images")
	flag.StringVar(&labelsPath, "labels", "", "Path to a label file, one class name per line (default: built-in YOLO classes)")
	flag.Float64Var(&confidence, "confidence", float64(detector.DefaultConfidenceThreshold), "Confidence threshold")
	flag.Float64Var(&iou, "iou", float64(detector.DefaultIoUThreshold), "IoU threshold for Non-Maximum Suppression")
	flag.IntVar(&maxResults, "max-results", detector.DefaultMaxResults, "Maximum detections per frame")
	flag.IntVar(&inputSize, "input-size", 640, "Square model input size")
	flag.Parse()

	if modelPath == "" {
		log.Fatal("Model path is required (-model)")
	}
	if (imagePath == "") == (dirPath == "") {
		log.Fatal("Provide exactly one of -image or -dir")
	}

	classes := models.YOLOClassNames
	if labelsPath != "" {
		loaded, err := loadLabels(labelsPath)
		if err != nil {
			log.Fatalf("Failed to load labels: %v", err)
		}
		classes = loaded
	}

	d, err := detector.New(detector.Config{
		ConfidenceThreshold: float32(confidence),
		IoUThreshold:        float32(iou),
		MaxResults:          maxResults,
		Classes:             classes,
	}, func() (inference.Engine, error) {
		cfg := inference.DefaultONNXConfig()
		cfg.ModelPath = modelPath
		cfg.InputSize = inputSize
		cfg.NumClasses = len(classes)
		return inference.NewONNXEngine(cfg)
	})
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}
	defer d.Close()

	files, err := collectFiles(imagePath, dirPath)
	if err != nil {
		log.Fatalf("Failed to load frames: %v", err)
	}

	ctx := context.Background()
	for _, file := range files {
		img, err := file.Decode()
		if err != nil {
			log.Fatalf("Failed to decode %s: %v", file.Path, err)
		}

		results, err := d.Detect(ctx, img)
		if err != nil {
			log.Fatalf("Detection failed on %s: %v", file.Path, err)
		}

		fmt.Printf("%s: %d detection(s), %.1f ms\n",
			file.Path, len(results), float64(d.LatencyStats().Last.Microseconds())/1000)
		for i, r := range results {
			fmt.Printf("  %d. %s\n", i+1, r)
		}
	}

	stats := d.LatencyStats()
	log.Printf("Processed %d frame(s): avg %.1f ms, min %.1f ms, max %.1f ms, ~%.1f FPS",
		stats.Count,
		float64(stats.Avg.Microseconds())/1000,
		float64(stats.Min.Microseconds())/1000,
		float64(stats.Max.Microseconds())/1000,
		stats.FPS)
}

// loadLabels reads one class name per line, skipping blanks.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var labels []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			labels = append(labels, line)
		}
	}
	return labels, nil
}

func collectFiles(imagePath, dirPath string) ([]util.ImageFile, error) {
	if dirPath != "" {
		return util.LoadDirectoryImageFiles(dirPath)
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}
	return []util.ImageFile{{Path: imagePath, Data: data}}, nil
}
