package core

// Logger is the app-wide leveled logger.
// Implementations may inspect args for known types (eg. an error to report,
// a logged-in user to attach to the report).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
