package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	logLevel    string
	encoding    string
	app         string
	outputPaths []string
}

type Option func(o *options)

func WithLogLevel(lv string) Option {
	return Option(func(o *options) {
		o.logLevel = lv
	})
}

// WithEncoding selects "json" or "console".
func WithEncoding(enc string) Option {
	return Option(func(o *options) {
		o.encoding = enc
	})
}

// WithApp stamps every entry with app=name.
func WithApp(name string) Option {
	return Option(func(o *options) {
		o.app = name
	})
}

func WithOutputPaths(paths ...string) Option {
	return Option(func(o *options) {
		o.outputPaths = paths
	})
}

func NewLogger(opts ...Option) (*zap.Logger, error) {
	o := options{
		logLevel:    "info",
		encoding:    "json",
		outputPaths: []string{"stderr"},
	}
	for _, e := range opts {
		e(&o)
	}

	level, err := zap.ParseAtomicLevel(o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("zap.ParseAtomicLevel: level=%s, %w", o.logLevel, err)
	}

	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch o.encoding {
	case "json":
	case "console":
		encConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("unknown encoding: %s", o.encoding)
	}

	zc := zap.Config{
		DisableCaller:     true,
		DisableStacktrace: true,
		Level:             level,
		Encoding:          o.encoding,
		EncoderConfig:     encConfig,
		OutputPaths:       o.outputPaths,
		ErrorOutputPaths:  []string{"stderr"},
	}
	if o.app != "" {
		zc.InitialFields = map[string]interface{}{"app": o.app}
	}

	zl, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("zap.Build: %w", err)
	}
	return zl, nil
}

func Must(zl *zap.Logger, err error) *zap.Logger {
	if err != nil {
		panic(err)
	}
	return zl
}
