// Package logger provides a colored console implementation of the shared
// Logger interface.
package logger

import (
	"errors"
	"io"
	"log"

	"github.com/beka-birhanu/gameloader-api/config"
	general_i "github.com/beka-birhanu/vinom-interfaces/general"
)

type consoleLogger struct {
	prefix string
	color  string
	out    *log.Logger
}

// New creates a logger that prefixes every line with a colored component tag.
func New(prefix, color string, w io.Writer) (general_i.Logger, error) {
	if prefix == "" {
		return nil, errors.New("logger prefix must not be empty")
	}

	return &consoleLogger{
		prefix: prefix,
		color:  color,
		out:    log.New(w, "", log.LstdFlags),
	}, nil
}

func (l *consoleLogger) Info(msg string) {
	l.print(config.LogInfoColor, "INFO", msg)
}

func (l *consoleLogger) Warning(msg string) {
	l.print(config.LogInfoColor, "WARNING", msg)
}

func (l *consoleLogger) Error(msg string) {
	l.print(config.LogErrorColor, "ERROR", msg)
}

func (l *consoleLogger) print(levelColor, level, msg string) {
	l.out.Printf("%s[%s]%s %s[%s]%s %s",
		l.color, l.prefix, config.LogColorReset,
		levelColor, level, config.LogColorReset,
		msg)
}
