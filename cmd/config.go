package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"mutago.dev/pkg/mutago/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "mutago"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName        = "output"
	excludeFlagName       = "exclude"
	operatorFlagName      = "operator"
	orderFlagName         = "order"
	homStrategyFlagName   = "hom-strategy"
	percentageFlagName    = "percentage"
	coverageFlagName      = "coverage"
	timeoutFactorFlagName = "timeout-factor"
	minTimeoutFlagName    = "min-timeout"
	gracePeriodFlagName   = "grace-period"
	testsFlagName         = "tests"
	seedFlagName          = "seed"
	noIgnoreFlagName      = "no-ignore"
	logFileFlagName       = "log-file"
	verboseFlagName       = "verbose"

	operatorsConfigKey     = "run.operators"
	orderConfigKey         = "run.order"
	homStrategyConfigKey   = "run.hom_strategy"
	percentageConfigKey    = "run.percentage"
	coverageConfigKey      = "run.coverage"
	timeoutFactorConfigKey = "run.timeout_factor"
	minTimeoutConfigKey    = "run.min_timeout"
	gracePeriodConfigKey   = "run.grace_period"
	testsConfigKey         = "run.tests"
	seedConfigKey          = "run.seed"
	noIgnoreConfigKey      = "run.no_ignore"
	excludeConfigKey       = "paths.exclude"

	defaultReportsDir  = ".mutago-reports"
	defaultOrder       = 1
	defaultPercentage  = 100.0
	defaultCoverage    = false
	defaultHOMStrategy = domain.FirstToLast

	envPrefix = "MUTAGO"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".mutago.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	initConfig()
}

// initConfig sets up the config sources and defaults of the global viper
// instance and reads mutago.yaml when present.
func initConfig() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(excludeConfigKey, []string{})

	viper.SetDefault(operatorsConfigKey, []string{})
	viper.SetDefault(orderConfigKey, defaultOrder)
	viper.SetDefault(homStrategyConfigKey, defaultHOMStrategy)
	viper.SetDefault(percentageConfigKey, defaultPercentage)
	viper.SetDefault(coverageConfigKey, defaultCoverage)
	viper.SetDefault(timeoutFactorConfigKey, domain.DefaultTimeoutFactor)
	viper.SetDefault(minTimeoutConfigKey, domain.DefaultMinTimeout.String())
	viper.SetDefault(gracePeriodConfigKey, domain.DefaultGracePeriod.String())
	viper.SetDefault(testsConfigKey, []string{})
	viper.SetDefault(seedConfigKey, uint64(0))
	viper.SetDefault(noIgnoreConfigKey, false)

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Debug("No config file loaded", "file", configFileName, "error", err)
		}
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// numeric slog levels, e.g. -4 for debug
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger points the default slog logger at a rotating log file.
// It logs at log.level, or at Debug when verbose is set.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose {
		logLevel = slog.LevelDebug
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

// durationValue reads a duration key that may also be written as a number of
// seconds in the config file.
func durationValue(key string) time.Duration {
	raw := viper.Get(key)

	switch v := raw.(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}

	return viper.GetDuration(key)
}
