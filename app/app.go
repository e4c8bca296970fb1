package app

import (
	"context"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/arenasvc"
	"github.com/lefinal/bedwars-server/director"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/logging"
	"github.com/lefinal/bedwars-server/portal"
	"github.com/lefinal/bedwars-server/schedule"
	"github.com/lefinal/bedwars-server/simhost"
	"github.com/lefinal/bedwars-server/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"os"
)

// App is a complete bedwars server instance.
type App struct {
	// config is the main config used for the App.
	config Config
}

func NewApp(config Config) *App {
	return &App{
		config: config,
	}
}

// Boot sets everything up based on the set config and runs until the given
// context.Context is done.
func (app *App) Boot(ctx context.Context) error {
	err := ValidateConfig(app.config)
	if err != nil {
		return errors.Wrap(err, "invalid config", nil)
	}
	logger, publishLog := setupLogging(ctx, app.config.Log)
	defer func() {
		_ = logger.Sync()
	}()
	err = app.boot(ctx, logger, publishLog)
	if err != nil {
		err = errors.Wrap(err, "boot", nil)
		errors.Log(logger, err)
		return err
	}
	return nil
}

func (app *App) boot(ctx context.Context, logger *zap.Logger, publishLog <-chan logging.LogEntry) error {
	logger.Warn("booting up")
	// Load maps.
	maps, err := arena.LoadMaps(app.config.MapsDir)
	if err != nil {
		return errors.Wrap(err, "load maps", errors.Details{"dir": app.config.MapsDir})
	}
	logger.Debug("maps loaded", zap.Int("count", len(maps)))
	arenas, err := arenaConfigs(app.config.Arenas, maps)
	if err != nil {
		return errors.Wrap(err, "arena configs", nil)
	}
	// Setup host.
	simHost := simhost.New(logger.Named("simhost"))
	var stats host.StatsRecorder = loggingStatsRecorder{logger: logger.Named("stats")}
	if app.config.DBConn.Valid {
		logger.Debug("connecting to database")
		maxConnections := defaultMaxDBConnections
		if app.config.MaxDBConnections.Valid {
			maxConnections = app.config.MaxDBConnections.Int
		}
		db, err := store.Connect(ctx, logger.Named("db"), app.config.DBConn.String, maxConnections)
		if err != nil {
			return errors.Wrap(err, "connect database", nil)
		}
		defer db.Close()
		stats = store.NewMall(logger.Named("mall"), db)
		logger.Debug("database ready")
	}
	// Setup director.
	notifier := arenasvc.NewNotifier(logger.Named("notifier"))
	dir, err := director.New(logger.Named("director"), app.config.Game, host.Host{
		Worlds:       simHost,
		Presentation: simHost,
		Stats:        stats,
	}, schedule.RealClock{}, notifier, arenas)
	if err != nil {
		return errors.Wrap(err, "new director", nil)
	}
	simHost.SetDeathHandler(newDeathHandler(ctx, logger.Named("deaths"), dir))
	// Setup portal.
	portalBase, err := portal.NewBase(logger.Named("portal"), portal.Config{MQTTAddr: app.config.MQTTAddr})
	if err != nil {
		return errors.Wrap(err, "new portal base", nil)
	}
	// Run services.
	s := createServices(app.config, logger, portalBase, dir, notifier, publishLog)
	logger.Warn("booted", zap.Strings("arenas", dir.Names()))
	err = s.run(ctx, logger)
	if err != nil {
		return errors.Wrap(err, "run services", nil)
	}
	logger.Warn("shut down")
	return nil
}

func setupLogging(ctx context.Context, config LogConfig) (*zap.Logger, <-chan logging.LogEntry) {
	encConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cores := make([]zapcore.Core, 0)
	// Setup stdout logger with colorful level output.
	stdOutEncConfig := encConfig
	stdOutEncConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= config.StdoutLogLevel && level < zap.ErrorLevel
		})))
	// Setup error logger.
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(encConfig),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.ErrorLevel
		})))
	// Setup high priority logger.
	if config.HighPriorityOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.HighPriorityOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.WarnLevel
			})))
	}
	// Setup debug logger.
	if config.DebugOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.DebugOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.DebugLevel
			})))
	}
	// Setup publish logger.
	publishCore, publishLog := logging.NewPublishCore(ctx, config.PublishLogLevel)
	cores = append(cores, publishCore)
	// Combine.
	logger := zap.New(zapcore.NewTee(cores...))
	return logger, publishLog
}
