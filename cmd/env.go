package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/zoomauto/zoomauto/cmd/common"
	"github.com/zoomauto/zoomauto/internal/config"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/logger"
	"github.com/zoomauto/zoomauto/pkg/storage"
)

// minIDPrefix is the shortest id prefix accepted in place of a full job id.
const minIDPrefix = 4

var errAmbiguousID = errors.New("job id prefix matches more than one job")

// fileSystem is the filesystem every command works on; tests swap it.
var fileSystem = afero.NewOsFs()

func loadSettings(ctx *cli.Context, cmd string) (*config.Settings, bool) {
	s, err := config.Load(config.DotEnvFiles()...)
	if err != nil {
		common.PrintRuntimeErr(ctx, cmd, "load_config", err)
		return nil, false
	}
	return s, true
}

// newLogger writes to the rotating log file in the data directory and, for
// the daemon, also to stderr.
func newLogger(s *config.Settings, console bool) logger.Logger {
	file := logger.NewFileLogger(s.LogFile(), s.LogMaxSizeMB).SetDebug(s.Debug)
	if !console {
		return file
	}
	std := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags)).SetDebug(s.Debug)
	return logger.NewMultiLogger(std, file)
}

// detachedScheduler lets the CLI edit the schedule file without arming
// timers; the daemon picks the edits up from the file.
type detachedScheduler struct{}

func (detachedScheduler) Arm(jobs.Job)  {}
func (detachedScheduler) Disarm(string) {}

// cliEnv is what a job command needs: settings, a log and a loaded store.
type cliEnv struct {
	settings *config.Settings
	log      logger.Logger
	store    *jobs.Store
}

func (e *cliEnv) Close() {
	_ = e.log.Close()
}

func openEnv(ctx *cli.Context, cmd string) (*cliEnv, bool) {
	s, ok := loadSettings(ctx, cmd)
	if !ok {
		return nil, false
	}
	l := newLogger(s, false)
	file := storage.NewFile(fileSystem, s.ScheduleFile())
	st := jobs.NewStore(detachedScheduler{}, file, jobs.WithLogger(l))
	if err := st.Load(); err != nil {
		common.PrintRuntimeErr(ctx, cmd, "load_jobs", err)
		_ = l.Close()
		return nil, false
	}
	return &cliEnv{settings: s, log: l, store: st}, true
}

// resolveJob finds a job by full id or by an unambiguous id prefix.
func resolveJob(st *jobs.Store, arg string) (jobs.Job, error) {
	arg = strings.TrimSpace(arg)
	if j, ok := st.Get(arg); ok {
		return j, nil
	}
	if len(arg) >= minIDPrefix {
		var (
			found jobs.Job
			n     int
		)
		for _, j := range st.List() {
			if strings.HasPrefix(j.ID, arg) {
				found = j
				n++
			}
		}
		switch n {
		case 1:
			return found, nil
		case 0:
		default:
			return jobs.Job{}, fmt.Errorf("%w: %s", errAmbiguousID, arg)
		}
	}
	return jobs.Job{}, fmt.Errorf("%w: %s", jobs.ErrNotFound, arg)
}

// jobArg returns the job named by the first argument. It prints the
// appropriate help or error itself and reports false when the command
// should stop.
func jobArg(ctx *cli.Context, e *cliEnv) (jobs.Job, bool) {
	arg := ctx.Args().First()
	if arg == "" {
		_ = common.PrintErrWithCmdHelp(ctx, errors.New("no job id provided"))
		return jobs.Job{}, false
	}
	j, err := resolveJob(e.store, arg)
	if err != nil {
		common.PrintRuntimeErr(ctx, ctx.Command.Name, "find_job", err)
		return jobs.Job{}, false
	}
	return j, true
}
