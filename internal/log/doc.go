// Package log provides logging with customer data redaction, built on top
// of the standard slog package.
//
// Review corpora carry customer names, locations and sometimes contact
// details. The RedactingHandler masks them before a record reaches the
// underlying handler:
//   - attributes whose key names customer data (customer, name, location)
//   - attributes whose key mentions an e-mail address or phone number
//   - string values that contain an e-mail address or are a phone number
//
// Masking applies at every level, including the debug output of --verbose.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("duplicate identity", "customer", "John D.", "pages", 3)
//	// customer=***REDACTED*** pages=3
package log
