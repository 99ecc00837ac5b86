package install

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// maxBinaryBytes bounds how much is extracted for one binary.
const maxBinaryBytes = 512 << 20

// extractBinary copies the zip entry whose base name is name into a new temp
// file in dir and returns its path. Nested layouts are accepted.
func extractBinary(archivePath, name, dir string) (_ string, err error) {
	reader, openErr := zip.OpenReader(archivePath)
	if openErr != nil {
		return "", fmt.Errorf("open zip: %w", openErr)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || path.Base(file.Name) != name {
			continue
		}
		if file.UncompressedSize64 > maxBinaryBytes {
			return "", fmt.Errorf("zip entry %s is larger than %d bytes", file.Name, maxBinaryBytes)
		}

		rc, openErr := file.Open()
		if openErr != nil {
			return "", fmt.Errorf("open zip entry %s: %w", file.Name, openErr)
		}
		defer rc.Close()

		tmp, createErr := os.CreateTemp(dir, ".extract-*.tmp")
		if createErr != nil {
			return "", fmt.Errorf("create temp file: %w", createErr)
		}
		defer func() {
			if err != nil {
				_ = os.Remove(tmp.Name())
			}
		}()

		n, copyErr := io.Copy(tmp, io.LimitReader(rc, maxBinaryBytes+1))
		closeErr := tmp.Close()
		if copyErr != nil {
			return "", fmt.Errorf("extract %s: %w", file.Name, copyErr)
		}
		if closeErr != nil {
			return "", fmt.Errorf("close %s: %w", tmp.Name(), closeErr)
		}
		if n > maxBinaryBytes {
			return "", fmt.Errorf("zip entry %s is larger than %d bytes", file.Name, maxBinaryBytes)
		}
		return tmp.Name(), nil
	}

	return "", fmt.Errorf("binary %q not found in archive %s", name, filepath.Base(archivePath))
}
