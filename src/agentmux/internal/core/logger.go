package core

import (
	"fmt"

	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	_configKeyLogging     = "logging"
	_configKeyServiceName = "service.name"
)

// LoggingConfig is the `logging` block of the daemon configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	// Encoding is json or console; anything else falls back to json.
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
	// ErrorOutputPaths receive zap's own failures, e.g. a sink that stopped accepting writes.
	ErrorOutputPaths []string `yaml:"errorOutputPaths"`
}

// LoggerModule provides the operational zap loggers.
var LoggerModule = fx.Options(
	fx.Provide(NewSugaredLogger),
	fx.Provide(NewLogger),
)

func NewLogger(sugar *zap.SugaredLogger) *zap.Logger {
	return sugar.Desugar()
}

// NewSugaredLogger builds the daemon logger from the logging block. Every record carries the
// configured service name. Output and error output default to stderr.
func NewSugaredLogger(provider config.Provider) (*zap.SugaredLogger, error) {
	var cfg LoggingConfig
	if err := provider.Get(_configKeyLogging).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyLogging, err)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing logging level %q: %w", cfg.Level, err)
	}

	sink, closeSink, err := zap.Open(orStderr(cfg.OutputPaths)...)
	if err != nil {
		return nil, fmt.Errorf("opening log outputs: %w", err)
	}
	errSink, _, err := zap.Open(orStderr(cfg.ErrorOutputPaths)...)
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("opening log error outputs: %w", err)
	}

	opts := []zap.Option{zap.ErrorOutput(errSink)}
	if cfg.Development {
		opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	logger := zap.New(zapcore.NewCore(newEncoder(cfg), sink, level), opts...)

	var service string
	if err := provider.Get(_configKeyServiceName).Populate(&service); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyServiceName, err)
	}
	if service != "" {
		logger = logger.With(zap.String("service", service))
	}
	return logger.Sugar(), nil
}

func newEncoder(cfg LoggingConfig) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	if cfg.Encoding == "console" {
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func orStderr(paths []string) []string {
	if len(paths) == 0 {
		return []string{"stderr"}
	}
	return paths
}
