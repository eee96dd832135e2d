package logger

// Logger is the minimal logging surface pipeline components depend on.
// Prefixes carry the component name, e.g. "[SyncEngine]".
type Logger interface {
	Log(format string, v ...interface{})
	SetPrefix(prefix string)
}
