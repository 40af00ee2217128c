package hamslog

import (
	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap/zapcore"
)

// rollbarCore tees zap entries at or above a minimum level to Rollbar.
// Reconstructed from the observable contract of the teacher's log
// package test suite (newRollbarCore(token, environment, version,
// minLevel) zapcore.Core); the teacher's own implementation file was not
// part of the retrieved pack.
type rollbarCore struct {
	zapcore.LevelEnabler
	client *rollbar.Client
	fields []zapcore.Field
}

func newRollbarCore(token, environment, codeVersion string, minLevel Level) *rollbarCore {
	client := rollbar.New(token, environment, codeVersion, "", "")
	return &rollbarCore{
		LevelEnabler: zapcore.Level(minLevel),
		client:       client,
	}
}

// With returns a core carrying the additional structured fields.
func (c *rollbarCore) With(fields []zapcore.Field) zapcore.Core {
	return &rollbarCore{
		LevelEnabler: c.LevelEnabler,
		client:       c.client,
		fields:       append(append([]zapcore.Field{}, c.fields...), fields...),
	}
}

// Check adds this core to ce if the entry's level is enabled.
func (c *rollbarCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write ships the entry to Rollbar at a severity matching the zap level.
func (c *rollbarCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	extras := fieldsToMap(append(c.fields, fields...))

	switch {
	case ent.Level >= zapcore.DPanicLevel:
		c.client.Critical(ent.Message, extras)
	case ent.Level == zapcore.ErrorLevel:
		c.client.Error(ent.Message, extras)
	case ent.Level == zapcore.WarnLevel:
		c.client.Warning(ent.Message, extras)
	default:
		c.client.Info(ent.Message, extras)
	}
	return nil
}

// Sync flushes any buffered Rollbar items.
func (c *rollbarCore) Sync() error {
	c.client.Wait()
	return nil
}

func fieldsToMap(fields []zapcore.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}
