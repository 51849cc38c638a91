package kkt

import (
	"os"

	"github.com/charmbracelet/log"
)

// defaultLogger is used by any Session whose Config.Logger is nil. It
// stays quiet at the default Info level; debug-level frame tracing is
// opt-in via the logger's own SetLevel.
var defaultLogger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "kkt",
})
