package gologger

import (
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

const RootLoggerName = "ingest"

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Component returns the logger for one ingestion component, named
// ingest.<component>. The provider decides the name mapping when present;
// otherwise the base logger is tagged with a component field if it supports
// fields.
func Component(provider glog.LoggerProvider, base glog.Logger, component string) glog.Logger {
	name := ComponentName(component)
	if provider != nil {
		if named := provider.GetLogger(name); named != nil {
			return named
		}
	}
	logger := glog.Ensure(base)
	if fields, ok := logger.(glog.FieldsLogger); ok {
		return fields.WithFields(map[string]any{"component": name})
	}
	return logger
}

func ComponentName(component string) string {
	component = strings.Trim(strings.TrimSpace(component), ".")
	if component == "" {
		return RootLoggerName
	}
	return RootLoggerName + "." + component
}
