// -----------------------------------------------------------------------
// Crash reporting - post-mortem files for fatal panics
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

var crashDir = "./logs"

// InstallCrashHandler sets the directory crash reports are written to
// and makes sure it exists. Call once during startup, before anything
// that can panic.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		crashDir = logDir
	}
	if err := os.MkdirAll(crashDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "crash handler: cannot create %s: %v\n", crashDir, err)
	}
}

// WriteCrashFile writes a post-mortem report for a fatal panic and
// returns the report path. Callers are expected to exit afterwards; the
// report is for the operator, not for recovery.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	path := filepath.Join(crashDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))

	var report bytes.Buffer
	fmt.Fprintf(&report, "colligo crash report\n")
	fmt.Fprintf(&report, "time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "version: %s\n\n", GetFullVersion())

	fmt.Fprintf(&report, "panic: %v\n\n", panicVal)
	fmt.Fprintf(&report, "--- panicking goroutine ---\n%s\n", stackTrace)
	fmt.Fprintf(&report, "--- all goroutines ---\n%s\n", allGoroutineStacks())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Fprintf(&report, "--- runtime ---\n")
	fmt.Fprintf(&report, "goroutines: %d\ncpus: %d\nos/arch: %s/%s\n",
		runtime.NumGoroutine(), runtime.NumCPU(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&report, "alloc: %d MB\nsys: %d MB\ngc cycles: %d\n",
		mem.Alloc/1024/1024, mem.Sys/1024/1024, mem.NumGC)

	// Unbuffered write; the process is about to die
	if err := os.WriteFile(path, report.Bytes(), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "crash handler: cannot write report: %v\n", err)
		fmt.Fprint(os.Stderr, report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\nfatal panic: %v\ncrash report: %s\n", panicVal, path)
	return path
}

// GetStackTrace returns the current goroutine's stack
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// allGoroutineStacks dumps every goroutine, growing the buffer until the
// dump fits
func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return string(buf[:n])
		}
		if len(buf) >= 32*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
