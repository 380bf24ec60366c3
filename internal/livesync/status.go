package livesync

// Status is the connection state shown to the user.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier surfaces connection events to the user.
type Notifier interface {
	Notify(level Level, title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, title, message string)

func (f NotifierFunc) Notify(level Level, title, message string) { f(level, title, message) }

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string, string) {}
