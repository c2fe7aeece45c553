package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const logFlags = log.Ldate | log.Ltime | log.Lmicroseconds

var (
	mu      sync.RWMutex
	logger  = log.New(os.Stderr, "", logFlags)
	debug   = os.Getenv("LOG_DEBUG") != ""
	verbose = os.Getenv("LOG_VERBOSE") != ""
)

// InitWithOutput redirects every category logger to w (a lumberjack.Logger in
// the CLI) and turns Info output on.
func InitWithOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", logFlags)
	verbose = true
}

// SetVerbose toggles Info output. Until InitWithOutput is called only Warn and
// Error reach stderr.
func SetVerbose(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = enabled
}

// SetDebug toggles Debug output.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = enabled
}

func printf(color, level, category string, content []interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	mu.RLock()
	enabled := verbose || debug
	mu.RUnlock()
	if !enabled {
		return
	}
	printf(ColorGreen, "INFO", category, content)
}

func Error(category string, content ...interface{}) {
	printf(ColorRed, "ERROR", category, content)
}

func Warn(category string, content ...interface{}) {
	printf(ColorYellow, "WARN", category, content)
}

func Debug(category string, content ...interface{}) {
	mu.RLock()
	enabled := debug
	mu.RUnlock()
	if !enabled {
		return
	}
	printf(ColorBlue, "DEBUG", category, content)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
