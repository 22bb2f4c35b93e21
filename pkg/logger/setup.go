package logger

import "time"

const textTimeFormat = "15:04:05"

// SetupLogger installs the process default logger for a step invocation and
// returns it. JSON output carries RFC 3339 timestamps so collectors can sort
// lines from several steps of a pipeline.
func SetupLogger(logLevel string, logJSON, logSource bool) Logger {
	timeFormat := textTimeFormat
	if logJSON {
		timeFormat = time.RFC3339
	}
	Init(&Config{
		Level:      LogLevel(logLevel),
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: timeFormat,
	})
	return GetDefault()
}
