// Package logging provides structured logging for the filepong client and server.
//
// Entries are JSON lines produced by log/slog. Each protocol side attaches
// its role so that interleaved client and server logs can be told apart:
//
//	{"time":"...","level":"INFO","msg":"response received","role":"CLIENT","correlation_id":"3"}
//
// # Destinations
//
// With an empty file path the logger writes to stderr. Otherwise it appends
// to the file through a [RotatingWriter], which shifts the file to numbered
// backups once it exceeds the configured size.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(cfg.Logging.File, cfg.Logging.Level,
//	    logging.WithRotation(logging.RotationConfig{MaxSizeMB: 10, MaxBackups: 3}))
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	clientLog := logger.WithRole("CLIENT")
//	clientLog.Info("request sent", "correlation_id", "1", "attempt", 1)
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// created with With* share the parent's writer.
package logging
