package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"github.com/zoomauto/zoomauto/pkg/logger"
)

// Hooks let the caller follow and steer a pipeline run. Every field is
// optional.
type Hooks struct {
	// Stage is called as each stage starts.
	Stage func(s Stage)
	// Confirm is asked before downloading; returning false ends the run
	// with ErrNoUpdate.
	Confirm func(current string, info *Info) bool
	// Progress reports download progress.
	Progress ProgressFunc
}

// Pipeline checks, downloads, verifies and applies an update. Only one Run
// may be in flight at a time.
type Pipeline struct {
	Config  Config
	Current string
	Checker *Checker
	// Installer performs the Apply stage.
	Installer Installer
	// Exit ends the process after a successful hand-off. Defaults to os.Exit.
	Exit func(code int)

	// TempDir receives the download. Defaults to the OS temp dir.
	TempDir     string
	IdleTimeout time.Duration
	Client      *http.Client
	Fs          afero.Fs
	Log         logger.Logger

	busy atomic.Bool
}

func (p *Pipeline) defaults() {
	if p.Checker == nil {
		p.Checker = NewChecker()
	}
	if p.Exit == nil {
		p.Exit = os.Exit
	}
	if p.TempDir == "" {
		p.TempDir = os.TempDir()
	}
	if p.IdleTimeout <= 0 {
		p.IdleTimeout = DefaultIdleTimeout
	}
	if p.Client == nil {
		p.Client = http.DefaultClient
	}
	if p.Fs == nil {
		p.Fs = afero.NewOsFs()
	}
	if p.Log == nil {
		p.Log = logger.NewNopLogger()
	}
}

// Check runs only the Check stage. It returns ErrNoUpdate when the latest
// release is not newer than Current.
func (p *Pipeline) Check(ctx context.Context) (*Info, error) {
	p.defaults()
	info, err := p.Checker.CheckLatest(ctx, p.Config)
	if err != nil {
		return nil, stageErr(StageCheck, err)
	}
	if !IsNewer(info.Version, p.Current) {
		return info, stageErr(StageCheck, fmt.Errorf("%w: latest is %s, running %s", ErrNoUpdate, info.Version, p.Current))
	}
	return info, nil
}

// Run executes every stage. On success it calls Exit(0) and, when Exit
// returns (as in tests), returns the installed release.
func (p *Pipeline) Run(ctx context.Context, h Hooks) (*Info, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, stageErr(StageCheck, ErrBusy)
	}
	defer p.busy.Store(false)
	p.defaults()

	enter := func(s Stage) {
		p.Log.Debug("update: %s", s)
		if h.Stage != nil {
			h.Stage(s)
		}
	}

	enter(StageCheck)
	info, err := p.Check(ctx)
	if err != nil {
		return info, err
	}
	if h.Confirm != nil && !h.Confirm(p.Current, info) {
		return info, stageErr(StageCheck, fmt.Errorf("%w: declined", ErrNoUpdate))
	}

	enter(StageDownload)
	if err := p.Fs.MkdirAll(p.TempDir, 0o755); err != nil {
		return info, stageErr(StageDownload, fmt.Errorf("%w: %v", ErrDownloadFailed, err))
	}
	dst := filepath.Join(p.TempDir, filepath.Base(info.AssetName))
	if err := download(ctx, p.Client, p.Fs, info.DownloadURL, dst, p.IdleTimeout, h.Progress); err != nil {
		return info, stageErr(StageDownload, fmt.Errorf("%w: %v", ErrDownloadFailed, err))
	}

	enter(StageVerify)
	if err := verify(p.Fs, dst, info.SHA256, p.Config.RequireSHA256); err != nil {
		return info, stageErr(StageVerify, err)
	}

	enter(StageApply)
	if p.Installer == nil {
		p.Fs.Remove(dst)
		return info, stageErr(StageApply, fmt.Errorf("%w: no installer for this build", ErrApplyFailed))
	}
	if err := p.Installer.Install(ctx, dst); err != nil {
		p.Fs.Remove(dst)
		if !errors.Is(err, ErrApplyFailed) {
			err = fmt.Errorf("%w: %v", ErrApplyFailed, err)
		}
		return info, stageErr(StageApply, err)
	}
	p.Log.Info("update to %s handed off, exiting", info.Version)
	p.Exit(0)
	return info, nil
}
