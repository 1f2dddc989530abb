package logger

import (
	"github.com/ThreeDotsLabs/watermill"
)

const busModule = "BUS"

// WatermillAdapter routes watermill's internal logging through ILogger.
type WatermillAdapter struct {
	log    ILogger
	fields watermill.LogFields
	debug  bool
}

var _ watermill.LoggerAdapter = (*WatermillAdapter)(nil)

func NewWatermillAdapter(log ILogger, debug bool) *WatermillAdapter {
	return &WatermillAdapter{log: log, debug: debug}
}

func (a *WatermillAdapter) details(fields watermill.LogFields) map[string]interface{} {
	all := a.fields.Add(fields)
	out := make(map[string]interface{}, len(all))
	for k, v := range all {
		out[k] = v
	}
	return out
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	d := a.details(fields)
	if err != nil {
		d["error"] = err.Error()
	}
	a.log.Error(busModule, msg, d)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(busModule, msg, a.details(fields))
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	if a.debug {
		a.log.Debug(busModule, msg, a.details(fields))
	}
}

func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{log: a.log, fields: a.fields.Add(fields), debug: a.debug}
}
