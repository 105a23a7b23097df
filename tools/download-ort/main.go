// Build-time tool that downloads the ONNX Runtime shared library and the
// HuggingFace tokenizers static library for the current platform. Both are
// needed to build with the ORT tag.
//
// Required env: ORT_VERSION       (e.g. "1.23.2")
// Optional env: ORT_LIB_DIR       (default "./lib")
//               TOKENIZERS_VERSION (default "1.24.0")
//
// Usage: ORT_VERSION=1.23.2 go run ./tools/download-ort
package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// artifact is one downloadable library: where it lives and what file the
// build expects.
type artifact struct {
	name     string
	url      string
	filename string
}

func main() {
	ortVersion := os.Getenv("ORT_VERSION")
	if ortVersion == "" {
		fmt.Fprintln(os.Stderr, "ORT_VERSION env var is required")
		os.Exit(1)
	}

	tokVersion := os.Getenv("TOKENIZERS_VERSION")
	if tokVersion == "" {
		tokVersion = "1.24.0"
	}

	destDir := os.Getenv("ORT_LIB_DIR")
	if destDir == "" {
		destDir = "./lib"
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create directory: %v\n", err)
		os.Exit(1)
	}

	artifacts, err := platformArtifacts(ortVersion, tokVersion)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, a := range artifacts {
		if err := install(a, destDir); err != nil {
			fmt.Fprintf(os.Stderr, "%s download failed: %v\n", a.name, err)
			os.Exit(1)
		}
	}
}

func platformArtifacts(ortVersion, tokVersion string) ([]artifact, error) {
	key := runtime.GOOS + "/" + runtime.GOARCH

	var ortArchive, ortLib, tokArchive string
	switch key {
	case "linux/amd64":
		ortArchive = fmt.Sprintf("onnxruntime-linux-x64-%s.tgz", ortVersion)
		ortLib = "libonnxruntime.so"
		tokArchive = "libtokenizers.linux-amd64.tar.gz"
	case "linux/arm64":
		ortArchive = fmt.Sprintf("onnxruntime-linux-aarch64-%s.tgz", ortVersion)
		ortLib = "libonnxruntime.so"
		tokArchive = "libtokenizers.linux-arm64.tar.gz"
	case "darwin/arm64":
		ortArchive = fmt.Sprintf("onnxruntime-osx-arm64-%s.tgz", ortVersion)
		ortLib = "libonnxruntime.dylib"
		tokArchive = "libtokenizers.darwin-arm64.tar.gz"
	case "darwin/amd64":
		ortArchive = fmt.Sprintf("onnxruntime-osx-x86_64-%s.tgz", ortVersion)
		ortLib = "libonnxruntime.dylib"
		tokArchive = "libtokenizers.darwin-x86_64.tar.gz"
	default:
		return nil, fmt.Errorf("no prebuilt libraries for %s", key)
	}

	return []artifact{
		{
			name: "ORT",
			url: fmt.Sprintf("https://github.com/microsoft/onnxruntime/releases/download/v%s/%s",
				ortVersion, ortArchive),
			filename: ortLib,
		},
		{
			name: "tokenizers",
			url: fmt.Sprintf("https://github.com/daulet/tokenizers/releases/download/v%s/%s",
				tokVersion, tokArchive),
			filename: "libtokenizers.a",
		},
	}, nil
}

func install(a artifact, destDir string) error {
	destPath := filepath.Join(destDir, a.filename)
	if _, statErr := os.Stat(destPath); statErr == nil {
		fmt.Printf("%s already exists at %s, skipping\n", a.name, destPath)
		return nil
	}

	fmt.Printf("Downloading %s from %s\n", a.name, a.url)
	if err := fetchAndExtract(a.url, destDir, a.filename); err != nil {
		return err
	}

	fmt.Printf("%s installed to %s\n", a.name, destPath)
	return nil
}

func fetchAndExtract(url, destDir, filename string) error {
	delay := 2 * time.Second
	var err error
	for i := 0; i < 4; i++ {
		if i > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}
		if err = tryFetchAndExtract(url, destDir, filename); err == nil {
			return nil
		}
	}
	return err
}

func tryFetchAndExtract(url, destDir, filename string) error {
	resp, err := http.Get(url) //nolint:gosec
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	return extractTgz(resp.Body, destDir, filename)
}

func extractTgz(body io.Reader, destDir, filename string) error {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close() //nolint:errcheck

	// Strip extension to match versioned variants like libonnxruntime.1.23.2.dylib
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read: %w", err)
		}

		// Skip symlinks and directories; only the real file is wanted.
		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)
		if base != filename && !strings.HasPrefix(base, nameWithoutExt+".") {
			continue
		}

		return writeFile(filepath.Join(destDir, filename), tr)
	}

	return fmt.Errorf("%s not found in archive", filename)
}

func writeFile(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return out.Close()
}
