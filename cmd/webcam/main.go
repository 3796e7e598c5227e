// Command webcam runs live detection over a capture device, drawing labeled
// boxes on the preview window. Frames that arrive while a detection pass is
// still running are dropped, never queued.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-vision/detector"
	"github.com/nvr-ai/go-vision/inference"
	"github.com/nvr-ai/go-vision/models"
	"github.com/nvr-ai/go-vision/models/postprocess"
)

func main() {
	var (
		deviceID   int
		modelPath  string
		confidence float64
		iou        float64
		maxResults int
		inputSize  int
	)
	flag.IntVar(&deviceID, "device", 0, "Video capture device ID")
	flag.StringVar(&modelPath, "model", "", "Path to detection ONNX model file")
	flag.Float64Var(&confidence, "confidence", float64(detector.DefaultConfidenceThreshold), "Confidence threshold")
	flag.Float64Var(&iou, "iou", float64(detector.DefaultIoUThreshold), "IoU threshold for Non-Maximum Suppression")
	flag.IntVar(&maxResults, "max-results", detector.DefaultMaxResults, "Maximum detections per frame")
	flag.IntVar(&inputSize, "input-size", 640, "Square model input size")
	flag.Parse()

	if modelPath == "" {
		log.Fatal("Model path is required (-model)")
	}

	d, err := detector.New(detector.Config{
		ConfidenceThreshold: float32(confidence),
		IoUThreshold:        float32(iou),
		MaxResults:          maxResults,
		Classes:             models.YOLOClassNames,
	}, func() (inference.Engine, error) {
		cfg := inference.DefaultONNXConfig()
		cfg.ModelPath = modelPath
		cfg.InputSize = inputSize
		return inference.NewONNXEngine(cfg)
	})
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}
	defer d.Close()

	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		log.Fatalf("Failed to open capture device %d: %v", deviceID, err)
	}
	defer webcam.Close()

	window := gocv.NewWindow("Object Detect")
	defer window.Close()

	img := gocv.NewMat()
	defer img.Close()

	blue := color.RGBA{B: 255, A: 255}

	// The rendering loop reads the latest completed snapshot; the detection
	// goroutine replaces it whole, never mutates it.
	var (
		mu      sync.Mutex
		latest  []postprocess.Result
		dropped int
	)

	fps := 0.0
	frameCount := 0
	lastTime := time.Now()

	log.Printf("start reading camera device: %v", deviceID)
	for {
		if ok := webcam.Read(&img); !ok {
			log.Printf("cannot read device %v", deviceID)
			return
		}
		if img.Empty() {
			continue
		}

		frameCount++
		elapsed := time.Since(lastTime).Seconds()
		if elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = time.Now()
		}

		frame, err := img.ToImage()
		if err != nil {
			log.Printf("cannot convert frame: %v", err)
			continue
		}

		if d.State() == detector.StateFailed {
			log.Printf("detector failed, reinitializing")
			if err := d.Reinitialize(); err != nil {
				log.Fatalf("Failed to reinitialize detector: %v", err)
			}
		}

		go func(frame image.Image) {
			results, err := d.Detect(context.Background(), frame)
			if err != nil {
				if errors.Is(err, detector.ErrBusy) {
					// Previous pass still running; drop this frame.
					mu.Lock()
					dropped++
					mu.Unlock()
					return
				}
				log.Printf("detection error: %v", err)
				return
			}
			mu.Lock()
			latest = results
			mu.Unlock()
		}(frame)

		mu.Lock()
		snapshot := latest
		droppedSoFar := dropped
		mu.Unlock()

		size := img.Size()
		height, width := size[0], size[1]
		for _, r := range snapshot {
			rect := image.Rect(
				int(r.Box.X1*float32(width)),
				int(r.Box.Y1*float32(height)),
				int(r.Box.X2*float32(width)),
				int(r.Box.Y2*float32(height)),
			)
			gocv.Rectangle(&img, rect, blue, 2)
			gocv.PutText(&img,
				fmt.Sprintf("%s %.2f", r.Label, r.Score),
				image.Pt(rect.Min.X, rect.Max.Y-5),
				gocv.FontHersheyPlain, 1.2, blue, 2)
		}

		stats := d.LatencyStats()
		gocv.PutText(&img,
			fmt.Sprintf("FPS: %.1f | pass: %.1f ms | dropped: %d",
				fps, float64(stats.Last.Microseconds())/1000, droppedSoFar),
			image.Pt(10, 20), gocv.FontHersheyPlain, 1.2, blue, 2)

		window.IMShow(img)
		window.WaitKey(1)
	}
}
