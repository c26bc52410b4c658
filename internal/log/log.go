package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Debug enables debug level output for loggers created after it is set.
// The CLI sets it from --verbose.
var Debug bool

// Output is where new loggers write. Tests may point it at io.Discard.
var Output io.Writer

// Log is a logrus entry tagged with the package that owns it.
type Log struct {
	*logrus.Entry
}

// New returns a Log with a "pkg" field.
func New(pkg string) Log {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{ForceColors: true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true}
	if Output != nil {
		log.SetOutput(Output)
	}
	if Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return Log{Entry: log.WithField("pkg", pkg)}
}

// Discard returns a Log that drops everything.
func Discard() Log {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return Log{Entry: logrus.NewEntry(log)}
}
