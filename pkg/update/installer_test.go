package update

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellScript(t *testing.T) {
	s := shellScript(4242, "/opt/zoom auto/zoomauto.new", "/opt/zoom auto/zoomauto", []string{"run", "--it's"})

	assert.True(t, strings.HasPrefix(s, "#!/bin/sh\n"))
	assert.Contains(t, s, "pid=4242\n")
	assert.Contains(t, s, `while kill -0 "$pid"`)
	assert.Contains(t, s, "mv -f '/opt/zoom auto/zoomauto.new' '/opt/zoom auto/zoomauto' || exit 1\n")
	assert.Contains(t, s, `nohup '/opt/zoom auto/zoomauto' 'run' '--it'\''s' >/dev/null 2>&1 &`)
	assert.True(t, strings.HasSuffix(s, "rm -f \"$0\"\n"))
}

func TestBatchScript(t *testing.T) {
	s := batchScript(77, `C:\Apps\zoomauto.exe.new`, `C:\Apps\zoomauto.exe`, []string{"run"})

	assert.Contains(t, s, "set PID=77\r\n")
	assert.Contains(t, s, `set CURR="C:\Apps\zoomauto.exe"`)
	assert.Contains(t, s, `set NEW="C:\Apps\zoomauto.exe.new"`)
	assert.Contains(t, s, `tasklist /fi "PID eq %PID%"`)
	assert.Contains(t, s, "move /y %NEW% %CURR%")
	assert.Contains(t, s, `start "" %CURR% "run"`)
	assert.Contains(t, s, `del /q "%~f0"`)
}

func newTestInstaller(fs afero.Fs, launch func(string) error) *ScriptInstaller {
	return &ScriptInstaller{
		Exe:       "/opt/app/zoomauto",
		Args:      []string{"run"},
		PID:       99,
		ScriptDir: "/tmp",
		fs:        fs,
		now:       func() time.Time { return time.Unix(1700000000, 0) },
		launch:    launch,
	}
}

func TestScriptInstallerStagesAndLaunches(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/update/app-linux", []byte(payload), 0o600))
	require.NoError(t, fs.MkdirAll("/opt/app", 0o755))

	var launched string
	inst := newTestInstaller(fs, func(script string) error {
		launched = script
		return nil
	})
	require.NoError(t, inst.Install(context.Background(), "/tmp/update/app-linux"))

	assert.Equal(t, "/tmp/zoomauto_apply_update_1700000000"+scriptExt, launched)
	staged, err := afero.ReadFile(fs, "/opt/app/zoomauto.new")
	require.NoError(t, err)
	assert.Equal(t, payload, string(staged))
	info, err := fs.Stat("/opt/app/zoomauto.new")
	require.NoError(t, err)
	assert.Equal(t, "-rwxr-xr-x", info.Mode().Perm().String())

	script, err := afero.ReadFile(fs, launched)
	require.NoError(t, err)
	assert.Contains(t, string(script), "99")
	ok, _ := afero.Exists(fs, "/tmp/update/app-linux")
	assert.False(t, ok, "download should have been moved")
}

func TestScriptInstallerLaunchFailureCleansUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/update/app-linux", []byte(payload), 0o600))
	require.NoError(t, fs.MkdirAll("/opt/app", 0o755))

	inst := newTestInstaller(fs, func(string) error { return errors.New("no shell") })
	err := inst.Install(context.Background(), "/tmp/update/app-linux")
	assert.ErrorIs(t, err, ErrApplyFailed)

	for _, p := range []string{"/opt/app/zoomauto.new", "/tmp/zoomauto_apply_update_1700000000" + scriptExt} {
		ok, _ := afero.Exists(fs, p)
		assert.False(t, ok, p)
	}
}

func TestMoveFileSameFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/src", []byte("data"), 0o644))
	require.NoError(t, fs.MkdirAll("/b", 0o755))

	require.NoError(t, moveFile(fs, "/a/src", "/b/dst"))
	data, err := afero.ReadFile(fs, "/b/dst")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestCopyAndDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/src", []byte("data"), 0o640))
	require.NoError(t, fs.MkdirAll("/b", 0o755))

	require.NoError(t, copyAndDelete(fs, "/a/src", "/b/dst"))
	ok, _ := afero.Exists(fs, "/a/src")
	assert.False(t, ok)
	info, err := fs.Stat("/b/dst")
	require.NoError(t, err)
	assert.Equal(t, "-rw-r-----", info.Mode().Perm().String())
}

func TestMoveFileMissingSource(t *testing.T) {
	err := moveFile(afero.NewMemMapFs(), "/nope", "/dst")
	assert.Error(t, err)
}
