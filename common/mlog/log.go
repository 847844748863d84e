package mlog

// Logger is the common interface every coordination primitive, adapter,
// and provider logs through — spec §2's ambient logging requirement.
// Every provider's Handle.dispatch logs only Info*/Error*; the
// connection hubs under common/ also call Fatal*. Warn/Debug and
// WithFields/Sync are kept on the interface so a caller can still plug
// in a general-purpose logger (NoneLogger, ZapLogger, or their own)
// without this library dictating a narrower contract than "logger."
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Fatalln(args ...any)

	WithFields(fields ...any) Logger

	Sync() error
}
