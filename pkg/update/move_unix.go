//go:build !windows

package update

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isCrossDeviceError reports whether err is EXDEV, returned when renaming
// across mount points.
func isCrossDeviceError(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
