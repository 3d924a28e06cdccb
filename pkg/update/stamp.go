package update

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// StampFileName records when the last background check ran.
const StampFileName = ".update_last_check"

// Throttle limits background checks to one per interval across restarts.
type Throttle struct {
	fs   afero.Fs
	path string
}

// NewThrottle stores its stamp at path.
func NewThrottle(fs afero.Fs, path string) *Throttle {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Throttle{fs: fs, path: path}
}

// Due reports whether at least interval has passed since the last Touch. An
// unreadable stamp counts as never checked.
func (t *Throttle) Due(now time.Time, interval time.Duration) bool {
	data, err := afero.ReadFile(t.fs, t.path)
	if err != nil {
		return true
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return true
	}
	last := time.Unix(0, int64(secs*float64(time.Second)))
	return now.Sub(last) >= interval
}

// Touch records now as the last check time.
func (t *Throttle) Touch(now time.Time) error {
	secs := float64(now.UnixNano()) / float64(time.Second)
	return afero.WriteFile(t.fs, t.path, []byte(strconv.FormatFloat(secs, 'f', 3, 64)), 0o644)
}
