// Package logging configures the process logger (logrus) and the optional
// export of log records over OTLP.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to stdout. Production uses JSON so log
// shippers can parse fields; other environments use the text formatter.
func New(level, environment string) *logrus.Logger {
	return NewWithOutput(os.Stdout, level, environment)
}

// NewWithOutput is New with a custom writer.
func NewWithOutput(w io.Writer, level, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(ParseLogrusLevel(level))
	if strings.EqualFold(environment, "production") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithComponent creates a logger with component context
func WithComponent(logger logrus.FieldLogger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}

// LogStartup logs application startup information
func LogStartup(logger logrus.FieldLogger, service, version string, port int) {
	logger.WithFields(logrus.Fields{
		"event":   "startup",
		"service": service,
		"version": version,
		"port":    port,
	}).Info("Service starting")
}

// LogShutdown logs application shutdown information
func LogShutdown(logger logrus.FieldLogger, service, reason string) {
	logger.WithFields(logrus.Fields{
		"event":   "shutdown",
		"service": service,
		"reason":  reason,
	}).Info("Service shutting down")
}

// LogBusinessEvent logs domain events (opportunity detected, alert sent) in
// a standardized format.
func LogBusinessEvent(logger logrus.FieldLogger, eventType string, details map[string]interface{}) {
	fields := logrus.Fields{
		"event": "business_event",
		"type":  eventType,
	}
	for k, v := range details {
		if _, reserved := fields[k]; reserved {
			continue
		}
		fields[k] = v
	}
	logger.WithFields(fields).Info("Business event")
}
