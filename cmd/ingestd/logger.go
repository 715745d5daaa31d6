package main

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus entry to glog.Logger. Trailing args are read as
// key/value pairs; an odd trailing key is logged under "arg".
type logrusLogger struct {
	entry *logrus.Entry
}

func newLogrusLogger(level string) *logrusLogger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})
	if parsed, err := logrus.ParseLevel(level); err == nil {
		base.SetLevel(parsed)
	}
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

func (l *logrusLogger) Trace(msg string, args ...any) { l.with(args).Trace(msg) }
func (l *logrusLogger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l *logrusLogger) Info(msg string, args ...any)  { l.with(args).Info(msg) }
func (l *logrusLogger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l *logrusLogger) Error(msg string, args ...any) { l.with(args).Error(msg) }
func (l *logrusLogger) Fatal(msg string, args ...any) { l.with(args).Fatal(msg) }

func (l *logrusLogger) WithContext(ctx context.Context) glog.Logger {
	return &logrusLogger{entry: l.entry.WithContext(ctx)}
}

func (l *logrusLogger) WithFields(fields map[string]any) glog.Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// GetLogger makes the adapter its own provider; names become a "logger" field.
func (l *logrusLogger) GetLogger(name string) glog.Logger {
	return &logrusLogger{entry: l.entry.WithField("logger", name)}
}

func (l *logrusLogger) with(args []any) *logrus.Entry {
	if len(args) == 0 {
		return l.entry
	}
	fields := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields["arg"] = args[i]
			break
		}
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	return l.entry.WithFields(fields)
}
