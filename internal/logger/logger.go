package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// devはコンソール、それ以外はJSON
func New(env string) (*zap.Logger, error) {
	if env == "dev" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	return zap.NewProduction()
}
