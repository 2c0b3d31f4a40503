// Package logging provides a process-wide structured logger for heapstore.
//
// The package wraps [log/slog] and exposes a single global logger instance
// that is initialized once and then retrieved via GetLogger. Subsystems
// obtain a logger through this package rather than constructing their own
// slog.Logger values, so level and destination are controlled in one place.
//
// # Initialisation
//
// Call Init (or InitDefault) once at program startup:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// InitDefault writes INFO-level text logs to stderr. Standard output is
// left to command results.
//
// # Context helpers
//
// Several helpers return child loggers pre-populated with structured fields:
//
//	log := logging.WithTx(tid)          // adds tx_id
//	log := logging.WithPage(pid)        // adds table_id and page_no
//	log := logging.WithComponent("lru") // adds component
package logging
