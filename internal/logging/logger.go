package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/contentdeck/apiserver/config"
)

const (
	combinedLog = "combined.log"
	errorLog    = "error.log"
	maxAge      = 14 * 24 * time.Hour
)

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds the process logger. Dev mode logs human-readable lines to
// stderr; otherwise JSON goes to stdout. With Dir set, entries are also
// written to a rotating combined.log and errors to a rotating error.log.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	lvl := levelFromString(cfg.Level)

	var stdout zapcore.Core
	if cfg.Dev {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		stdout = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), lvl)
	} else {
		stdout = zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), zapcore.Lock(os.Stdout), lvl)
	}

	cores := []zapcore.Core{stdout}
	if cfg.Dir != "" {
		fileCores, err := rotatingCores(cfg.Dir, lvl)
		if err != nil {
			return nil, err
		}
		cores = append(cores, fileCores...)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Dev {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func fileEncoderConfig() zapcore.EncoderConfig {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderCfg
}

func rotatingCores(dir string, lvl zapcore.Level) ([]zapcore.Core, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	combined, err := rotatingWriter(dir, combinedLog)
	if err != nil {
		return nil, err
	}
	errs, err := rotatingWriter(dir, errorLog)
	if err != nil {
		return nil, err
	}

	errorLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.ErrorLevel && l >= lvl
	})
	encoder := zapcore.NewJSONEncoder(fileEncoderConfig())
	return []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(combined), lvl),
		zapcore.NewCore(encoder.Clone(), zapcore.AddSync(errs), errorLevel),
	}, nil
}

func rotatingWriter(dir, name string) (*rotatelogs.RotateLogs, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	w, err := rotatelogs.New(
		filepath.Join(dir, base+".%Y%m%d.log"),
		rotatelogs.WithLinkName(filepath.Join(dir, name)),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return w, nil
}
