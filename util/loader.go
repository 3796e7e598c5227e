// Package util - Frame-file loading helpers for the CLI collaborators.
package util

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number parsed from the file name, or -1 when the
	// name carries no frame-N prefix.
	Frame int
}

// Decode parses the raw bytes into an image.
func (f *ImageFile) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", f.Path)
	}
	return img, nil
}

// LoadImageFile reads and decodes a single image file.
func LoadImageFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	f := ImageFile{Path: path, Data: data}
	return f.Decode()
}

// LoadDirectoryImageFiles reads all image files from a directory, ordered by
// frame number when the files follow the frame-N naming convention and by
// name otherwise.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: Slice of ImageFile, each containing the raw bytes of an
//     image file.
//   - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", dir)
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(file.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png":
			imgPath := filepath.Join(dir, file.Name())
			data, readErr := os.ReadFile(imgPath)
			if readErr != nil {
				return nil, errors.Wrapf(readErr, "reading %s", imgPath)
			}
			images = append(images, ImageFile{
				Path:  imgPath,
				Data:  data,
				Frame: frameNumber(file.Name(), ext),
			})
		}
	}

	sort.Slice(images, func(i, j int) bool {
		if images[i].Frame != images[j].Frame {
			return images[i].Frame < images[j].Frame
		}
		return images[i].Path < images[j].Path
	})

	return images, nil
}

func frameNumber(name, ext string) int {
	trimmed := strings.TrimSuffix(name, ext)
	trimmed = strings.TrimPrefix(trimmed, "frame-")
	frame, err := strconv.Atoi(trimmed)
	if err != nil {
		return -1
	}
	return frame
}
