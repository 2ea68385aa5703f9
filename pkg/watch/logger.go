package watch

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-logr/logr"
)

type logrAdapter struct {
	logger logr.Logger
}

// NewLoggerAdapter routes watermill logs to logger. Debug and trace
// messages are emitted at V(1) and V(2).
func NewLoggerAdapter(logger logr.Logger) watermill.LoggerAdapter {
	return &logrAdapter{logger: logger.WithName("watermill")}
}

func keysAndValues(fields watermill.LogFields) []any {
	kvs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		kvs = append(kvs, k, v)
	}
	return kvs
}

func (l *logrAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error(err, msg, keysAndValues(fields)...)
}

func (l *logrAdapter) Info(msg string, fields watermill.LogFields) {
	l.logger.Info(msg, keysAndValues(fields)...)
}

func (l *logrAdapter) Debug(msg string, fields watermill.LogFields) {
	l.logger.V(1).Info(msg, keysAndValues(fields)...)
}

func (l *logrAdapter) Trace(msg string, fields watermill.LogFields) {
	l.logger.V(2).Info(msg, keysAndValues(fields)...)
}

func (l *logrAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logrAdapter{logger: l.logger.WithValues(keysAndValues(fields)...)}
}
