package config

import (
	"os"
	"reflect"

	"dario.cat/mergo"
	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/mitchellh/mapstructure"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/yeager/mqtt-dashboard/pkg/dashboard"
)

const (
	envPrefix = "MQTT_DASHBOARD_"

	defaultLogFileMaxSize = 10 * 1024 * 1024 // 10 Megabytes
)

type CLI struct {
	ConfigFile     string           `short:"c" xor:"config" type:"existingfile"`
	Verbose        bool             `short:"d" help:"verbose log"`
	Broker         string           `short:"b" help:"broker host"`
	BrokerUser     string           `short:"u" help:"broker user"`
	BrokerPassword string           `short:"P" help:"broker password"`
	BrokerPort     int              `short:"p" help:"broker port"`
	LayoutFile     string           `short:"l" help:"dashboard layout file"`
	Version        kong.VersionFlag `short:"v"`
}

type FileSize uint64

type LoggingFileConfig struct {
	// Enabled determines if file logging should be enabled.
	Enabled bool

	// Filename is the file to write logs to. Backup logs will be retained in
	// the same directory.
	Filename string

	// MaxSize is the maximum size of the log file before it gets rotated.
	MaxSize FileSize

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int

	// MaxAgeDays is the maximum number of days to retain old log files.
	MaxAgeDays int

	// UseLocalTime determines if the time used for formatting the timestamps in
	// backup files is the computer's local time. If false, UTC is used.
	UseLocalTime bool

	// Compress determines if the rotated log files should be compressed
	// using gzip.
	Compress bool
}

type LoggingConfig struct {
	// Enabled determines if logging should be enabled.
	Enabled bool

	// ToStderr determines if log output should be directed to
	// standard error. If false, standard output is used instead.
	ToStderr bool

	// Level is the logger level.
	Level logrus.Level

	// ReportCaller sets whether the standard logger will include the calling
	// method as a field.
	ReportCaller bool

	// FormatAsJson determines if the logging output should be formatted as
	// parsable JSON.
	FormatAsJson bool

	// ForceColors disables checking for a TTY before outputting colors.
	// This will force all output to be colored.
	ForceColors bool

	// File is the logging file configuration
	File LoggingFileConfig
}

type Config struct {
	CLI
	// Logging is the logging configuration
	Logging LoggingConfig

	// LogCapacity bounds the in-memory message log ring.
	LogCapacity int

	// SparklinePoints is the history depth of new sparkline widgets.
	SparklinePoints int
}

// NewConfig creates a new configuration structure
// filled with default options
func NewConfig() Config {
	return Config{
		CLI: CLI{
			BrokerPort: 1883,
			LayoutFile: dashboard.DefaultLayoutPath(),
		},
		Logging:         NewLoggingConfig(),
		LogCapacity:     dashboard.DefaultLogCapacity,
		SparklinePoints: dashboard.DefaultSparklinePoints,
	}
}

// NewLoggingConfig creates a new logging configuration structure
// filled with default options
func NewLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Enabled:      true,
		ToStderr:     true,
		Level:        logrus.InfoLevel,
		ReportCaller: false,
		FormatAsJson: false,
		File:         NewLoggingFileConfig(),
	}
}

// NewLoggingFileConfig creates a new logging file config structure
// filled with default parameters
func NewLoggingFileConfig() LoggingFileConfig {
	return LoggingFileConfig{
		Enabled:      false,
		Filename:     "",
		MaxSize:      defaultLogFileMaxSize,
		MaxBackups:   3,
		MaxAgeDays:   14,
		UseLocalTime: false,
		Compress:     false,
	}
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func mergeCliAndConfig(config *Config, cli *CLI) {
	mergo.Merge(&config.CLI, cli, mergo.WithOverride)
}

// Parse loads the configuration
// using a pre initialized viper object
func Parse(v *viper.Viper, configFile string, cli *CLI) (*Config, error) {
	var err error

	v.SetEnvPrefix(envPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if configFile != "" && fileExists(configFile) {
		v.SetConfigFile(configFile)
		err = v.ReadInConfig()
		if err != nil {
			return nil, eris.Wrap(err, "failed to read configuration file")
		}
	} else if configFile != "" {
		return nil, eris.New("file not valid")
	}

	config := NewConfig()

	// Create decode hooks to parse custom configuration types such as
	// logrus LogLevel or FileSize
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToLogLevelHookFunc(),
		stringToFileSizeHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToIPHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	err = v.UnmarshalExact(&config, decodeHook)
	if err != nil {
		return nil, eris.Wrap(err, "failed to unmarshal configuration file")
	}

	mergeCliAndConfig(&config, cli)

	return &config, nil
}

// stringToFileSizeHookFunc is a mapstructure decode hook
// which decodes strings to file sizes
func stringToFileSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(FileSize(0)) {
			return data, nil
		}
		size, err := humanize.ParseBytes(data.(string))
		if err != nil {
			return nil, err
		}
		return FileSize(size), nil
	}
}

// stringToLogLevelHookFunc is a mapstructure decode hook
// which decodes strings to log levels
func stringToLogLevelHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(logrus.DebugLevel) {
			return data, nil
		}
		return logrus.ParseLevel(data.(string))
	}
}
