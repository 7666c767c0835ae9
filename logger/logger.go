// Package logger builds the zap loggers used across talenthos.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a SugaredLogger.
//
// jsonOutput selects machine-readable production encoding; otherwise a
// human-readable console encoder writing to stdout is used. Callers derive
// component loggers via .Named("jobs"), .Named("interview"), etc.
func New(jsonOutput bool) (*zap.SugaredLogger, error) {
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zapLogger, err := config.Build()
		if err != nil {
			return nil, err
		}
		return zapLogger.Sugar(), nil
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	zapLogger := zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.AddSync(os.Stdout),
			zap.InfoLevel,
		),
	)
	return zapLogger.Sugar(), nil
}

// Nop returns a logger that discards everything. Used in tests and as a
// safe default before New is called.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
