package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// DefaultIdleTimeout aborts a download that receives no data for this long.
const DefaultIdleTimeout = 60 * time.Second

const chunkSize = 128 * 1024

// ProgressFunc receives the bytes written so far and the expected total. The
// total is zero when the server did not announce a length.
type ProgressFunc func(done, total int64)

// download streams url into dst on fs. Any failure or cancellation removes
// dst.
func download(ctx context.Context, client *http.Client, fs afero.Fs, url, dst string, idle time.Duration, progress ProgressFunc) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		stale bool
	)
	watchdog := time.AfterFunc(idle, func() {
		mu.Lock()
		stale = true
		mu.Unlock()
		cancel()
	})
	defer watchdog.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	f, err := fs.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fs.Remove(dst)
			mu.Lock()
			if stale {
				err = fmt.Errorf("no data for %s: %w", idle, err)
			}
			mu.Unlock()
		}
	}()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	var done int64
	buf := make([]byte, chunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			watchdog.Reset(idle)
			if _, werr := f.Write(buf[:n]); werr != nil {
				return werr
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if total > 0 && done != total {
		return fmt.Errorf("short download: got %d of %d bytes", done, total)
	}
	return nil
}

// fileSHA256 returns the lower-case hex digest of path.
func fileSHA256(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verify checks path against want. A missing or mismatching digest removes
// the file.
func verify(fs afero.Fs, path, want string, required bool) error {
	want = strings.TrimSpace(want)
	if want == "" {
		if required {
			fs.Remove(path)
			return ErrChecksumMissing
		}
		return nil
	}
	got, err := fileSHA256(fs, path)
	if err != nil {
		fs.Remove(path)
		return err
	}
	if !strings.EqualFold(got, want) {
		fs.Remove(path)
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, strings.ToLower(want), got)
	}
	return nil
}
