package logging

import (
	"math"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter wraps our Logger to implement the zapcore.Core interface
type ZapAdapter struct {
	logger *Logger
}

// NewZapAdapter creates a new zapcore.Core that forwards logs to our Logger
func NewZapAdapter(logger *Logger) *ZapAdapter {
	return &ZapAdapter{
		logger: logger,
	}
}

// toLevel maps zap levels onto ours. Fatal and panic entries are written at
// ERROR; zap itself terminates the process after writing them.
func toLevel(level zapcore.Level) LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Enabled implements zapcore.Core
func (a *ZapAdapter) Enabled(level zapcore.Level) bool {
	return a.logger.shouldLog(toLevel(level))
}

// getFieldValue converts a zapcore.Field to its interface{} value
func getFieldValue(field zapcore.Field) interface{} {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return field.Integer
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return uint64(field.Integer)
	case zapcore.Float64Type:
		return math.Float64frombits(uint64(field.Integer))
	case zapcore.Float32Type:
		return float64(math.Float32frombits(uint32(field.Integer)))
	case zapcore.BoolType:
		return field.Integer == 1
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
		return field.Interface
	default:
		// Fall back to zap's own encoding for the remaining field types
		enc := zapcore.NewMapObjectEncoder()
		field.AddTo(enc)
		if v, ok := enc.Fields[field.Key]; ok {
			return v
		}
		return field.Interface
	}
}

func toFields(fields []zapcore.Field, extra int) map[string]interface{} {
	f := make(map[string]interface{}, len(fields)+extra)
	for _, field := range fields {
		f[field.Key] = getFieldValue(field)
	}
	return f
}

// With implements zapcore.Core
func (a *ZapAdapter) With(fields []zapcore.Field) zapcore.Core {
	return &ZapAdapter{
		logger: a.logger.WithFields(toFields(fields, 0)),
	}
}

// Check implements zapcore.Core
func (a *ZapAdapter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(ent.Level) {
		return ce.AddCore(ent, a)
	}
	return ce
}

// Write implements zapcore.Core
func (a *ZapAdapter) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	f := toFields(fields, 2)
	if ent.LoggerName != "" {
		f["component"] = ent.LoggerName
	}
	if ent.Caller.Defined {
		f["caller"] = ent.Caller.TrimmedPath()
	}

	a.logger.log(toLevel(ent.Level), ent.Message, f, 0)
	return nil
}

// Sync implements zapcore.Core
func (a *ZapAdapter) Sync() error {
	// No-op for our logger
	return nil
}

// NewZapLogger creates a new *zap.Logger that forwards logs to our Logger
func NewZapLogger(logger *Logger) *zap.Logger {
	return zap.New(NewZapAdapter(logger), zap.AddCaller())
}
