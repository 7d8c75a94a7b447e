package cache

import "github.com/itsneelabh/reqctx/reqctxlog"

// pickLogger returns the first logger in logger, or the package default
// if none was supplied.
func pickLogger(logger []reqctxlog.Logger) reqctxlog.Logger {
	if len(logger) > 0 && logger[0] != nil {
		return logger[0]
	}
	return reqctxlog.NewDefaultLogger()
}
