package update

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// moveFile renames src to dst, falling back to copy and delete when they
// live on different filesystems.
func moveFile(fs afero.Fs, src, dst string) error {
	err := fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDeviceError(err) {
		return fmt.Errorf("moveFile %s -> %s: %w", src, dst, err)
	}
	if err := copyAndDelete(fs, src, dst); err != nil {
		return fmt.Errorf("moveFile %s -> %s (cross-device): %w", src, dst, err)
	}
	return nil
}

// copyAndDelete copies src to dst keeping its permissions, then deletes src.
// A partial dst is removed on error.
func copyAndDelete(fs afero.Fs, src, dst string) error {
	srcInfo, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcFile, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := fs.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	copySucceeded := false
	defer func() {
		dstFile.Close()
		if !copySucceeded {
			fs.Remove(dst)
		}
	}()

	if _, err := io.CopyBuffer(dstFile, srcFile, make([]byte, chunkSize)); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}
	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("sync destination: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	copySucceeded = true

	srcFile.Close()
	if err := fs.Remove(src); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}
