package scheduler

import (
	"runtime/debug"

	"github.com/zoomauto/zoomauto/pkg/logger"
)

// safeGo runs fn in a goroutine with panic recovery. A panic is logged with
// its stack and then onPanic, if set, is called with the recovered value.
func safeGo(l logger.Logger, name string, onPanic func(r any), fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				l.Error("PANIC [%s]: %v\n%s", name, r, debug.Stack())
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
