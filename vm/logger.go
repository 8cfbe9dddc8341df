package vm

import "github.com/tliron/commonlog"

const loggerName = "illusions.vm"

// logger returns the package logger. It is resolved on each call so that a
// backend configured after package init is still picked up.
func logger() commonlog.Logger {
	return commonlog.GetLogger(loggerName)
}
