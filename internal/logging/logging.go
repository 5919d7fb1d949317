// Package logging provides the gateway's operational logger plus a
// separate structured audit sink.
//
// Use a dot import to access L_info, L_error, etc. directly, the way the
// rest of this codebase does — threading a *Logger through every call site
// would make the connector/orchestrator/HTTP-surface signatures far noisier
// for no benefit, since there is exactly one process-wide logger.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Log levels
const (
	LevelFatal = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var (
	logger *log.Logger
	once   sync.Once

	// Current log level (used for trace filtering since charmbracelet doesn't have trace)
	currentLevel int32 = LevelInfo
)

// Config holds logging configuration
type Config struct {
	Level      int
	TimeFormat string
	ShowCaller bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		TimeFormat: "15:04:05",
		ShowCaller: true,
	}
}

// Init initializes the global logger. Safe to call multiple times.
func Init(cfg *Config) {
	once.Do(func() {
		if cfg == nil {
			cfg = DefaultConfig()
		}

		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      cfg.TimeFormat,
			ReportCaller:    cfg.ShowCaller,
			CallerOffset:    2, // Skip two frames (logMsg -> L_* -> caller)
		})

		atomic.StoreInt32(&currentLevel, int32(cfg.Level))

		switch cfg.Level {
		case LevelTrace, LevelDebug:
			logger.SetLevel(log.DebugLevel)
		case LevelInfo:
			logger.SetLevel(log.InfoLevel)
		case LevelWarn:
			logger.SetLevel(log.WarnLevel)
		case LevelError, LevelFatal:
			logger.SetLevel(log.ErrorLevel)
		}
	})
}

// ensureInit ensures logger is initialized with defaults if not already
func ensureInit() {
	if logger == nil {
		Init(nil)
	}
}

// hasFmtVerb checks if a string contains printf-style format verbs
func hasFmtVerb(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '%' {
			next := s[i+1]
			if next != '%' && strings.ContainsRune("vsdtfgeopqxXbcUT+#", rune(next)) {
				return true
			}
		}
	}
	return false
}

// logMsgWithPrefix logs with a custom level prefix (for trace, which charmbracelet doesn't support)
func logMsgWithPrefix(prefix string, msg string, args ...interface{}) {
	ensureInit()

	var finalMsg string
	var keyvals []interface{}

	if len(args) == 0 {
		finalMsg = msg
	} else if hasFmtVerb(msg) {
		finalMsg = fmt.Sprintf(msg, args...)
	} else {
		finalMsg = msg
		keyvals = args
	}

	now := time.Now().Format("2006/01/02 15:04:05")

	_, file, line, ok := runtime.Caller(2)
	caller := ""
	if ok {
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		caller = fmt.Sprintf("<%s:%d>", file, line)
	}

	var sb strings.Builder
	sb.WriteString(now)
	sb.WriteString(" ")
	sb.WriteString(prefix)
	sb.WriteString(" ")
	sb.WriteString(caller)
	sb.WriteString(" ")
	sb.WriteString(finalMsg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		sb.WriteString(fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1]))
	}
	sb.WriteString("\n")

	fmt.Fprint(os.Stderr, sb.String())
}

// logMsg handles the flexible logging format:
//   - logMsg(level, "message") -> simple
//   - logMsg(level, "value is %d", 42) -> printf
//   - logMsg(level, "loaded", "key", val, ...) -> structured
func logMsg(level log.Level, msg string, args ...interface{}) {
	ensureInit()

	var finalMsg string
	var keyvals []interface{}

	if len(args) == 0 {
		finalMsg = msg
	} else if hasFmtVerb(msg) {
		finalMsg = fmt.Sprintf(msg, args...)
	} else {
		finalMsg = msg
		keyvals = args
	}

	switch level {
	case log.DebugLevel:
		logger.Debug(finalMsg, keyvals...)
	case log.InfoLevel:
		logger.Info(finalMsg, keyvals...)
	case log.WarnLevel:
		logger.Warn(finalMsg, keyvals...)
	case log.ErrorLevel:
		logger.Error(finalMsg, keyvals...)
	case log.FatalLevel:
		logger.Fatal(finalMsg, keyvals...)
	}
}

// L_trace logs at trace level (only if trace logging is enabled).
func L_trace(msg string, args ...interface{}) {
	if atomic.LoadInt32(&currentLevel) < int32(LevelTrace) {
		return
	}
	logMsgWithPrefix("TRAC", msg, args...)
}

// L_debug logs at debug level
func L_debug(msg string, args ...interface{}) {
	logMsg(log.DebugLevel, msg, args...)
}

// L_info logs at info level
func L_info(msg string, args ...interface{}) {
	logMsg(log.InfoLevel, msg, args...)
}

// L_warn logs at warn level
func L_warn(msg string, args ...interface{}) {
	logMsg(log.WarnLevel, msg, args...)
}

// L_error logs at error level
func L_error(msg string, args ...interface{}) {
	logMsg(log.ErrorLevel, msg, args...)
}

// L_fatal logs at fatal level and exits
func L_fatal(msg string, args ...interface{}) {
	logMsg(log.FatalLevel, msg, args...)
}

// SetLevel changes the log level at runtime
func SetLevel(level int) {
	ensureInit()
	atomic.StoreInt32(&currentLevel, int32(level))

	switch level {
	case LevelTrace, LevelDebug:
		logger.SetLevel(log.DebugLevel)
	case LevelInfo:
		logger.SetLevel(log.InfoLevel)
	case LevelWarn:
		logger.SetLevel(log.WarnLevel)
	case LevelError, LevelFatal:
		logger.SetLevel(log.ErrorLevel)
	}
}

// GetLevel returns the current log level
func GetLevel() int {
	return int(atomic.LoadInt32(&currentLevel))
}

// L_elapsed logs with elapsed time since start
func L_elapsed(start time.Time, msg string, args ...interface{}) {
	ensureInit()
	elapsed := time.Since(start)
	args = append(args, "elapsed", elapsed.String())
	logMsg(log.InfoLevel, msg, args...)
}

// --- Audit sink ---
//
// Audit records (spec section 6) are a separate concern from operational
// logging: they must never be dropped by a level filter, never interleaved
// with human-oriented log lines, and are always one JSON object per line.
// A dedicated writer keeps that guarantee independent of whatever the
// operational logger's level or output is configured to.

var (
	auditMu     sync.Mutex
	auditWriter io.Writer = os.Stdout
)

// SetAuditWriter redirects audit records. Defaults to stdout.
func SetAuditWriter(w io.Writer) {
	auditMu.Lock()
	defer auditMu.Unlock()
	auditWriter = w
}

// AuditRequest writes the "request" half of an audit log pair (spec 6).
func AuditRequest(requestID string, payload any, headers map[string][]string) {
	writeAudit(map[string]any{
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"type":       "request",
		"payload":    payload,
		"headers":    headers,
	})
}

// AuditResponse writes the "response" half of an audit log pair (spec 6).
func AuditResponse(requestID string, response any, statusCode int) {
	writeAudit(map[string]any{
		"request_id":  requestID,
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"type":        "response",
		"response":    response,
		"status_code": statusCode,
	})
}

func writeAudit(record map[string]any) {
	line, err := json.Marshal(record)
	if err != nil {
		L_error("audit: failed to marshal record", "error", err)
		return
	}
	auditMu.Lock()
	defer auditMu.Unlock()
	auditWriter.Write(append(line, '\n'))
}
