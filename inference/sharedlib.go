package inference

import (
	"os"
	"runtime"
)

// SharedLibPathEnv overrides the onnxruntime shared-library location.
const SharedLibPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the platform-specific path of the onnxruntime
// shared library, honoring the environment override first.
func GetSharedLibPath() string {
	if path := os.Getenv(SharedLibPathEnv); path != "" {
		return path
	}
	if runtime.GOOS == "windows" {
		return "third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" {
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.dylib"
		}
		return "third_party/onnxruntime_amd64.dylib"
	}
	if runtime.GOARCH == "arm64" {
		return "third_party/onnxruntime_arm64.so"
	}
	return "third_party/onnxruntime.so"
}
