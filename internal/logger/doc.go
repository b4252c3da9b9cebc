// Package logger provides a leveled, source-tagged logging facility.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, optional source (for example
// a worker ID such as "worker-3"), and message. Output is produced by a
// logrus logger using a formatter that keeps the single-line layout:
//
//	[2006-01-02 15:04:05.000] [INFO] [worker-3] exiting
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Pool started")
//	logger.Info("worker-1", "handled job %d", 7)
//	logger.Error("worker-1", "job panicked: %v", r)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("worker-1", "Debug message")
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// # Thread Safety
//
// All logging operations are safe for concurrent use; logrus serializes
// writes to the output.
package logger
