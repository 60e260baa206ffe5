package app

import (
	"io"

	"taskbot/internal/config"
	"taskbot/pkg/logging"
)

// Options control how the application is bootstrapped.
type Options struct {
	// ConfigPath is the configuration file. Empty means config.DefaultPath.
	ConfigPath string
	// Debug forces debug logging regardless of logging.level.
	Debug bool
	// Watch reloads the allow-list and messages when the file changes.
	Watch bool
	// LogOutput receives log records. Nil means stderr.
	LogOutput io.Writer
}

func (o Options) configPath() (string, error) {
	if o.ConfigPath != "" {
		return o.ConfigPath, nil
	}
	return config.DefaultPath()
}

// LoadConfig resolves the configuration file and loads it.
func LoadConfig(opts Options) (config.Config, string, error) {
	path, err := opts.configPath()
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, path, err
	}
	return cfg, path, nil
}

// InitLogging configures pkg/logging from cfg.
func InitLogging(cfg config.LoggingConfig, debug bool, out io.Writer) {
	level := logging.ParseLevel(cfg.Level)
	if debug {
		level = logging.LevelDebug
	}
	format := logging.FormatText
	if cfg.Format == config.LogFormatJSON {
		format = logging.FormatJSON
	}
	logging.Init(level, format, out)
}
