// Build-time tool that downloads the all-MiniLM-L6-v2 sentence-transformer
// model into the local model cache used by the built-in embedding provider.
//
// Usage: go run ./tools/download-model [dest]
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
)

const modelName = "sentence-transformers/all-MiniLM-L6-v2"

func main() {
	dest := defaultDest()
	if len(os.Args) > 1 {
		dest = os.Args[1]
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Downloading %s to %s...\n", modelName, dest)

	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	modelPath, err := hugot.DownloadModel(modelName, dest, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "download model: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model downloaded to %s\n", modelPath)
}

func defaultDest() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".harmonium", "models")
	}
	return filepath.Join(home, ".harmonium", "models")
}
