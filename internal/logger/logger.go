// Package logger wraps logrus with the JSON layout used across the service and
// carries request-scoped entries through context.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

type ctxKey struct{}

// Init configures the shared logger. Unknown levels fall back to info.
func Init(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	base.SetOutput(os.Stdout)

	if format == "text" {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	base.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
}

// SetOutput redirects log output. Useful for testing.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// L returns an entry on the shared logger.
func L() *logrus.Entry {
	return logrus.NewEntry(base)
}

// WithFields returns an entry carrying the given fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return base.WithFields(fields)
}

// WithContext stores entry in ctx so downstream code logs with the same fields.
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the request-scoped entry, or the shared logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && e != nil {
			return e
		}
	}
	return L()
}
