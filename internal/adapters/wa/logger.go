package wa

import (
	"fmt"

	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/outflow-sh/outflow/pkg/log"
)

// logBridge adapts the application logger to whatsmeow's logging interface.
type logBridge struct {
	log    log.Logger
	module string
}

func newLogBridge(l log.Logger, module string) waLog.Logger {
	return &logBridge{log: l, module: module}
}

func (b *logBridge) Errorf(msg string, args ...interface{}) {
	b.log.Error(fmt.Sprintf(msg, args...), log.String("module", b.module))
}

func (b *logBridge) Warnf(msg string, args ...interface{}) {
	b.log.Warn(fmt.Sprintf(msg, args...), log.String("module", b.module))
}

func (b *logBridge) Infof(msg string, args ...interface{}) {
	b.log.Info(fmt.Sprintf(msg, args...), log.String("module", b.module))
}

func (b *logBridge) Debugf(msg string, args ...interface{}) {
	b.log.Debug(fmt.Sprintf(msg, args...), log.String("module", b.module))
}

func (b *logBridge) Sub(module string) waLog.Logger {
	return &logBridge{log: b.log, module: b.module + "/" + module}
}
