package kvs

// Logger is the subset of a structured logger the store needs. It is
// satisfied directly by *zap.SugaredLogger; see internal/kvslog for the
// adapter used when the caller only has a plain *zap.Logger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// nopLogger discards everything. It is the default when NewStore is not
// given a WithLogger option.
type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}
