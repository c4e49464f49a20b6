package logger

import (
	"fmt"

	"go.uber.org/zap"
)

var base *zap.Logger

var serviceName = "signal_bot"

// Init builds the process-wide zap logger. Call once from main before any
// other package logs.
func Init(name string) error {
	l, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	base = l
	if name != "" {
		serviceName = name
	}
	return nil
}

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

func log() *zap.Logger {
	if base == nil {
		base, _ = zap.NewProduction(zap.AddCallerSkip(1))
	}
	return base.With(zap.String("service", serviceName))
}

func Info(format string, args ...interface{}) {
	log().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	log().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	log().Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	log().Fatal(fmt.Sprintf(format, args...))
}
