package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/flexprice/installments/internal/logger"
)

// WatermillLogger adapts our logger to watermill.LoggerAdapter
type WatermillLogger struct {
	log    *logger.Logger
	fields watermill.LogFields
}

func NewWatermillLogger(log *logger.Logger) watermill.LoggerAdapter {
	return &WatermillLogger{log: log, fields: watermill.LogFields{}}
}

func (w *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.log.Errorw(msg, append(w.keysAndValues(fields), "error", err)...)
}

func (w *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	w.log.Infow(msg, w.keysAndValues(fields)...)
}

func (w *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.log.Debugw(msg, w.keysAndValues(fields)...)
}

// Trace is logged at debug, zap has no trace level
func (w *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.log.Debugw(msg, w.keysAndValues(fields)...)
}

func (w *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillLogger{log: w.log, fields: w.fields.Add(fields)}
}

func (w *WatermillLogger) keysAndValues(fields watermill.LogFields) []interface{} {
	all := w.fields.Add(fields)
	kv := make([]interface{}, 0, len(all)*2)
	for k, v := range all {
		kv = append(kv, k, v)
	}
	return kv
}
