package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoomauto/zoomauto/pkg/logger"
)

// "test" hashes to testDigest.
const payload = "test"

type fakeInstaller struct {
	mu    sync.Mutex
	got   []string
	err   error
	block chan struct{}
}

func (f *fakeInstaller) Install(_ context.Context, newFile string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, newFile)
	return f.err
}

func newTestPipeline(t *testing.T, rs *releaseServer, inst Installer) (*Pipeline, afero.Fs, *int) {
	t.Helper()
	fs := afero.NewMemMapFs()
	exitCode := -1
	p := &Pipeline{
		Config:    testConfig(),
		Current:   "1.3.9",
		Checker:   NewChecker(WithAPIBase(rs.URL)),
		Installer: inst,
		Exit:      func(code int) { exitCode = code },
		TempDir:   "/tmp/update",
		Fs:        fs,
		Log:       logger.NewMockLogger(),
	}
	return p, fs, &exitCode
}

func tempFiles(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, "/tmp/update")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestPipelineSuccess(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	rs.files["app-linux"] = payload
	rs.body = "sha256: " + testDigest
	inst := &fakeInstaller{}
	p, fs, exitCode := newTestPipeline(t, rs, inst)

	var stages []Stage
	var lastDone, lastTotal int64
	info, err := p.Run(context.Background(), Hooks{
		Stage:    func(s Stage) { stages = append(stages, s) },
		Progress: func(done, total int64) { lastDone, lastTotal = done, total },
	})
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, []Stage{StageCheck, StageDownload, StageVerify, StageApply}, stages)
	assert.Equal(t, int64(len(payload)), lastDone)
	assert.Equal(t, int64(len(payload)), lastTotal)
	assert.Equal(t, []string{"/tmp/update/app-linux"}, inst.got)
	assert.Equal(t, 0, *exitCode)

	data, err := afero.ReadFile(fs, "/tmp/update/app-linux")
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestPipelineNotNewer(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	inst := &fakeInstaller{}
	p, _, exitCode := newTestPipeline(t, rs, inst)
	p.Current = "1.4.0"

	_, err := p.Run(context.Background(), Hooks{})
	assert.ErrorIs(t, err, ErrNoUpdate)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageCheck, se.Stage)
	assert.Empty(t, inst.got)
	assert.Equal(t, -1, *exitCode)
}

func TestPipelineChecksumMismatchLeavesNothing(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	rs.files["app-linux"] = "tampered"
	rs.body = "sha256: " + testDigest
	inst := &fakeInstaller{}
	p, fs, exitCode := newTestPipeline(t, rs, inst)

	_, err := p.Run(context.Background(), Hooks{})
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Empty(t, tempFiles(t, fs))
	assert.Empty(t, inst.got)
	assert.Equal(t, -1, *exitCode)
}

func TestPipelineChecksumRequired(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	rs.files["app-linux"] = payload
	p, fs, _ := newTestPipeline(t, rs, &fakeInstaller{})

	_, err := p.Run(context.Background(), Hooks{})
	assert.ErrorIs(t, err, ErrChecksumMissing)
	assert.Empty(t, tempFiles(t, fs))
}

func TestPipelineChecksumOptional(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	rs.files["app-linux"] = payload
	inst := &fakeInstaller{}
	p, _, exitCode := newTestPipeline(t, rs, inst)
	p.Config.RequireSHA256 = false

	_, err := p.Run(context.Background(), Hooks{})
	require.NoError(t, err)
	assert.Len(t, inst.got, 1)
	assert.Equal(t, 0, *exitCode)
}

func TestPipelineDownloadFailure(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	p, fs, _ := newTestPipeline(t, rs, &fakeInstaller{})

	_, err := p.Run(context.Background(), Hooks{})
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.Empty(t, tempFiles(t, fs))
}

func TestPipelineDeclined(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	rs.files["app-linux"] = payload
	p, _, _ := newTestPipeline(t, rs, &fakeInstaller{})

	_, err := p.Run(context.Background(), Hooks{
		Confirm: func(string, *Info) bool { return false },
	})
	assert.ErrorIs(t, err, ErrNoUpdate)
	assert.Zero(t, rs.hitCount("/dl/app-linux"))
}

func TestPipelineApplyFailureRemovesDownload(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	rs.files["app-linux"] = payload
	rs.body = "sha256: " + testDigest
	p, fs, exitCode := newTestPipeline(t, rs, &fakeInstaller{err: errors.New("read-only")})

	_, err := p.Run(context.Background(), Hooks{})
	assert.ErrorIs(t, err, ErrApplyFailed)
	assert.Empty(t, tempFiles(t, fs))
	assert.Equal(t, -1, *exitCode)
}

func TestPipelineRejectsConcurrentRun(t *testing.T) {
	rs := newReleaseServer(t)
	rs.assets = []string{"app-linux"}
	rs.files["app-linux"] = payload
	rs.body = "sha256: " + testDigest
	inst := &fakeInstaller{block: make(chan struct{})}
	p, _, _ := newTestPipeline(t, rs, inst)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), Hooks{})
		done <- err
	}()

	require.Eventually(t, func() bool { return p.busy.Load() }, 2*time.Second, 5*time.Millisecond)
	_, err := p.Run(context.Background(), Hooks{})
	assert.ErrorIs(t, err, ErrBusy)

	close(inst.block)
	require.NoError(t, <-done)

	// Free again once the first run finished.
	p.Current = "1.4.0"
	_, err = p.Run(context.Background(), Hooks{})
	assert.ErrorIs(t, err, ErrNoUpdate)
}

func TestDownloadCancelRemovesPartialFile(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.Write(make([]byte, 1024))
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := download(ctx, srv.Client(), fs, srv.URL, "/tmp/part", time.Minute, nil)
	require.Error(t, err)
	ok, _ := afero.Exists(fs, "/tmp/part")
	assert.False(t, ok, "partial download left behind")
}

func TestDownloadIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("x"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	err := download(context.Background(), srv.Client(), fs, srv.URL, "/tmp/idle", 100*time.Millisecond, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data for")
	ok, _ := afero.Exists(fs, "/tmp/idle")
	assert.False(t, ok)
}
