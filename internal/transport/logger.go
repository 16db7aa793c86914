package transport

import (
	"fmt"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// pahoLogger adapts a zap log method to paho's package level loggers.
type pahoLogger struct {
	log func(msg string, fields ...zap.Field)
}

func (l pahoLogger) Println(v ...interface{}) {
	l.log(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l pahoLogger) Printf(format string, v ...interface{}) {
	l.log(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// SetLogger routes paho's warnings and errors into log. paho debug output
// stays disabled.
func SetLogger(log *zap.Logger) {
	log = log.Named("paho")
	pahomqtt.CRITICAL = pahoLogger{log: log.Error}
	pahomqtt.ERROR = pahoLogger{log: log.Error}
	pahomqtt.WARN = pahoLogger{log: log.Warn}
}
