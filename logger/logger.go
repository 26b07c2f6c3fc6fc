package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// Flag to track if JSON output is enabled
	JSONOutput bool
)

func init() {
	// No-op until Initialize so library users never hit a nil logger
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. verbosity is the -v flag count.
func Initialize(jsonOutput bool, verbosity int) error {
	return InitializeWriter(os.Stderr, jsonOutput, verbosity)
}

// InitializeWriter is Initialize with an explicit sink, used by the agent's
// interactive mode to keep log lines off the HUD stream.
func InitializeWriter(w io.Writer, jsonOutput bool, verbosity int) error {
	JSONOutput = jsonOutput
	level := VerbosityToLevel(verbosity)

	if theme := os.Getenv("WORLDTREE_LOG_THEME"); theme != "" {
		SetTheme(theme)
	}

	var enc zapcore.Encoder
	if jsonOutput {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		enc = newMinimalEncoder()
	}

	Logger = zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)).Sugar()
	return nil
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, keysAndValues...)
	}
}

// Warnw logs a warning message with structured fields
func Warnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, keysAndValues...)
	}
}

// Errorw logs an error message with structured fields
func Errorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, keysAndValues...)
	}
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, keysAndValues...)
	}
}
