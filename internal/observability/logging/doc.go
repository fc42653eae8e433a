// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the engine.
//
// Example usage:
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	func deliver(ctx context.Context) {
//	    logging.FromContext(ctx).Info("delivering notification")
//	}
package logging
