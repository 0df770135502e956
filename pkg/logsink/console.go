package logsink

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

var errorText = color.New(color.FgRed)

// ConsoleSink prints records as bare lines: info to out, error to errOut.
type ConsoleSink struct {
	info zerolog.Logger
	err  zerolog.Logger
}

// NewConsoleSink creates a ConsoleSink. When colored is set, error records
// are printed in red.
func NewConsoleSink(out, errOut io.Writer, colored bool) *ConsoleSink {
	return &ConsoleSink{
		info: zerolog.New(messageWriter(out, nil)),
		err: zerolog.New(messageWriter(errOut, func(msg string) string {
			if colored {
				return errorText.Sprint(msg)
			}
			return msg
		})),
	}
}

func messageWriter(w io.Writer, style func(string) string) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.MessageFieldName},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			msg := fmt.Sprint(i)
			if style != nil {
				return style(msg)
			}
			return msg
		},
	}
}

// Write prints r.
func (s *ConsoleSink) Write(r Record) {
	if r.Level == LevelError {
		s.err.Log().Msg(r.Message)
		return
	}
	s.info.Log().Msg(r.Message)
}
