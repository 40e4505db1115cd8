package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level       string `json:"level" yaml:"level" koanf:"level"`
	Development bool   `json:"development" yaml:"development" koanf:"development"`
	Encoding    string `json:"encoding" yaml:"encoding" koanf:"encoding"` // json or console
	OutputPath  string `json:"output_path" yaml:"output_path" koanf:"output_path"`

	// Added to every entry, e.g. service name and environment
	InitialFields map[string]interface{} `json:"-" yaml:"-" koanf:"-"`
}

// DefaultConfig returns the production logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Encoding:   "json",
		OutputPath: "stdout",
	}
}

// DevelopmentConfig returns development logger configuration
func DevelopmentConfig() *Config {
	return &Config{
		Level:       "debug",
		Development: true,
		Encoding:    "console",
		OutputPath:  "stdout",
	}
}

// BuildZap creates the raw zap logger described by the configuration.
func (c *Config) BuildZap() (*zap.Logger, error) {
	var zapConfig zap.Config

	if c.Development {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.MessageKey = "message"
		zapConfig.EncoderConfig.LevelKey = "level"
		zapConfig.EncoderConfig.CallerKey = "caller"
		zapConfig.EncoderConfig.StacktraceKey = "stacktrace"
	}

	output := c.OutputPath
	if output == "" {
		output = "stdout"
	}

	zapConfig.Level = zap.NewAtomicLevelAt(levelOrInfo(c.Level))
	if c.Encoding != "" {
		zapConfig.Encoding = c.Encoding
	}
	zapConfig.OutputPaths = []string{output}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	zapConfig.Development = c.Development
	zapConfig.InitialFields = c.InitialFields

	return zapConfig.Build()
}

// Build creates a ZapLogger from the configuration
func (c *Config) Build() (*ZapLogger, error) {
	logger, err := c.BuildZap()
	if err != nil {
		return nil, err
	}
	return Wrap(logger), nil
}
