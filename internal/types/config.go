package types

// RunMode is the deployment mode of the process
type RunMode string

const (
	ModeLocal RunMode = "local"
	ModeAPI   RunMode = "api"
)

// LogLevel is the logging verbosity level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (l LogLevel) String() string {
	return string(l)
}
