//go:build windows

package update

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isCrossDeviceError reports whether err is ERROR_NOT_SAME_DEVICE, returned
// when moving a file between drives.
func isCrossDeviceError(err error) bool {
	return errors.Is(err, windows.ERROR_NOT_SAME_DEVICE)
}
