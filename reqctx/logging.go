package reqctx

import "github.com/itsneelabh/reqctx/reqctxlog"

// pickLogger returns the first logger in logger, or the package default
// if none was supplied — the trailing-variadic-option idiom used across
// WithDeadline/WithOverrides so callers that don't care about diagnostics
// never have to pass one.
func pickLogger(logger []reqctxlog.Logger) reqctxlog.Logger {
	if len(logger) > 0 && logger[0] != nil {
		return logger[0]
	}
	return reqctxlog.NewDefaultLogger()
}
