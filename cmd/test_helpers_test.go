package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/zoomauto/zoomauto/common"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/storage"
)

// useDataDir points the commands at a fresh data directory.
func useDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(common.DataDirEnv, dir)
	t.Setenv(common.DebugEnv, "false")
	return dir
}

// runCLI runs the binary's command line in-process.
func runCLI(t *testing.T, args ...string) {
	t.Helper()
	argv := append([]string{"zoomauto"}, args...)
	if err := Execute(argv, BuildArgs{Version: "1.0.0", BuildType: "test"}); err != nil {
		t.Fatalf("Execute(%v): %v", args, err)
	}
}

// savedJobs reads the schedule file of dir.
func savedJobs(t *testing.T, dir string) []jobs.Job {
	t.Helper()
	f := storage.NewFile(afero.NewOsFs(), filepath.Join(dir, common.ScheduleFileName))
	js, err := f.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return js
}

func onlyJob(t *testing.T, dir string) jobs.Job {
	t.Helper()
	js := savedJobs(t, dir)
	if len(js) != 1 {
		t.Fatalf("expected 1 saved job, got %d", len(js))
	}
	return js[0]
}
