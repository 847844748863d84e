package mzap

import (
	"testing"

	"go.uber.org/zap"
)

func TestZapLogger(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()
	zapLogger := &ZapLogger{Logger: sugar}

	t.Run("Info", func(t *testing.T) { zapLogger.Info("a", "b") })
	t.Run("Infof", func(t *testing.T) { zapLogger.Infof("%s", "a") })
	t.Run("Infoln", func(t *testing.T) { zapLogger.Infoln("a", "b") })

	t.Run("Error", func(t *testing.T) { zapLogger.Error("a", "b") })
	t.Run("Errorf", func(t *testing.T) { zapLogger.Errorf("%s", "a") })
	t.Run("Errorln", func(t *testing.T) { zapLogger.Errorln("a", "b") })

	t.Run("Warn", func(t *testing.T) { zapLogger.Warn("a", "b") })
	t.Run("Warnf", func(t *testing.T) { zapLogger.Warnf("%s", "a") })
	t.Run("Warnln", func(t *testing.T) { zapLogger.Warnln("a", "b") })

	t.Run("Debug", func(t *testing.T) { zapLogger.Debug("a", "b") })
	t.Run("Debugf", func(t *testing.T) { zapLogger.Debugf("%s", "a") })
	t.Run("Debugln", func(t *testing.T) { zapLogger.Debugln("a", "b") })

	t.Run("WithFields", func(t *testing.T) {
		child := zapLogger.WithFields("component", "test")
		if child == nil {
			t.Fatal("expected non-nil logger")
		}
	})

	t.Run("Sync", func(t *testing.T) {
		_ = zapLogger.Sync()
	})
}
