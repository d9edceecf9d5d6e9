package logs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

type Options struct {
	// File is the log file path. "-" writes to stderr, "" disables the
	// text handler.
	File  string
	Level string
	// Journal adds a systemd journal handler when the journal is reachable.
	Journal bool
}

// Logger owns the handlers behind an *slog.Logger and the file they write to.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar
	file  io.Closer
}

func New(opts Options) (*Logger, error) {
	level := new(slog.LevelVar)
	if err := SetLevel(level, opts.Level); err != nil {
		return nil, err
	}

	l := &Logger{Level: level}
	var handlers []slog.Handler

	var textHandler slog.Handler
	switch opts.File {
	case "":
	case "-":
		textHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		textHandler = slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	}
	if textHandler != nil {
		handlers = append(handlers, textHandler)
	}

	if opts.Journal {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if textHandler != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
				record.Add("error", err)
				_ = textHandler.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journalHandler)
		}
	}

	l.Logger = slog.New(&Handler{
		Handler: slogmulti.Fanout(handlers...),
	})
	return l, nil
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// SetLevel parses one of debug, info, warn or error into v.
func SetLevel(v *slog.LevelVar, s string) error {
	if s == "" {
		v.Set(slog.LevelInfo)
		return nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("parse log level %q: %w", s, err)
	}
	v.Set(lvl)
	return nil
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	str = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
	return str
}
