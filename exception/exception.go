package exception

import (
	"runtime/debug"

	"github.com/mezonai/powledger/logx"
	"github.com/mezonai/powledger/monitoring"
)

// SafeGo runs fn on a new goroutine. A panic is logged and counted instead of
// taking the process down.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// Recover is deferred by goroutines that must not crash the process.
func Recover(name string) {
	if r := recover(); r != nil {
		monitoring.IncreasePanicCount()
		logx.Error("PANIC", "Panic in: ", name, " ", r, " ", string(debug.Stack()))
	}
}
