package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

type ZapLogger struct {
	log *zap.SugaredLogger
}

var current atomic.Pointer[ZapLogger]

func init() {
	current.Store(&ZapLogger{log: zap.NewNop().Sugar()})
}

func NewLogger(config zap.Config) (*ZapLogger, error) {
	logger, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	l := &ZapLogger{log: logger.Sugar()}
	current.Store(l)
	return l, nil
}

// Use installs an already built zap logger, e.g. zaptest.NewLogger in tests.
func Use(logger *zap.Logger) {
	current.Store(&ZapLogger{log: logger.WithOptions(zap.AddCallerSkip(2)).Sugar()})
}

func GetLogger() *ZapLogger {
	return current.Load()
}

func (l *ZapLogger) Fatal(err error, values ...any) {
	l.log.Fatalw(err.Error(), values...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, values...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, values...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, values...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, values...)
}
