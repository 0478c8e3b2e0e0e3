package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger for the given environment: JSON output in prod,
// human-readable console output everywhere else. An optional non-empty
// levelOverride (debug, info, warn, error) replaces the environment default.
func New(env string, levelOverride ...string) (*zap.Logger, error) {
	cfg, err := baseConfig(env)
	if err != nil {
		return nil, err
	}

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(levelOverride[0])); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelOverride[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func baseConfig(env string) (zap.Config, error) {
	switch env {
	case "prod":
		return zap.NewProductionConfig(), nil
	case "local", "dev", "docker":
		return zap.NewDevelopmentConfig(), nil
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}
}
