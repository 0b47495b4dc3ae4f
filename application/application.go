// Package application 装配配置、日志与指标等进程级依赖。
package application

import (
	"io/fs"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/ringercore-go/pkg/fileio"
	zlog "github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
	zviper "github.com/lk2023060901/ringercore-go/pkg/util/viper"
)

const (
	// DefaultConfigPath 为默认配置文件路径，文件不存在时使用内置默认值。
	DefaultConfigPath = "./config.yaml"
	// ConfigPathEnv 为指定配置文件路径的环境变量。
	ConfigPathEnv = "RINGER_CONFIG_FILE_PATH"
)

// Config 是进程配置。
type Config struct {
	// Log 为全局日志配置。
	Log zlog.Config `mapstructure:"log"`
	// Storage 为持久化配置。
	Storage fileio.Config `mapstructure:"storage"`
	// Logging 为按名字创建的模块日志配置。
	Logging map[string]zlog.Config `mapstructure:"logging"`
}

// DefaultConfig 返回内置默认配置：info 级别文本日志输出到标准输出，持久化使用 fileio.DefaultConfig。
func DefaultConfig() Config {
	return Config{
		Log: zlog.Config{
			Level:               "info",
			Format:              "text",
			Stdout:              true,
			DisableErrorVerbose: true,
		},
		Storage: fileio.DefaultConfig(),
	}
}

// Application 是进程运行时容器，持有配置与命名 Logger。
type Application struct {
	cfg     Config
	path    string
	loggers map[string]*zlog.MLogger
}

// New creates a new Application instance.
func New() *Application {
	return &Application{cfg: DefaultConfig()}
}

// Run 解析命令行参数（os.Args）并初始化应用。
func (a *Application) Run() error {
	return a.Init(os.Args[1:])
}

// Init 加载配置并初始化日志与指标。配置文件路径的优先级为：
//  1. 默认：./config.yaml（不存在时使用内置默认值）
//  2. 环境变量：RINGER_CONFIG_FILE_PATH
//  3. 命令行：--config <path> 或 --config=<path>
//
// 每一项配置都可以被 RINGER_ 前缀的环境变量覆盖，例如 RINGER_LOG_LEVEL。
func (a *Application) Init(args []string) error {
	if err := a.loadConfig(args); err != nil {
		return err
	}
	if err := a.cfg.Storage.Validate(); err != nil {
		return err
	}
	if err := a.initLogging(); err != nil {
		return err
	}
	metrics.Register(metrics.GetRegisterer())
	zlog.Info("application initialized",
		zlog.FieldFile(a.path),
		zlog.FieldComponent("application"))
	return nil
}

// Config returns the loaded configuration.
func (a *Application) Config() Config {
	return a.cfg
}

// ConfigPath 返回实际加载的配置文件路径，使用内置默认值时为空。
func (a *Application) ConfigPath() string {
	return a.path
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// ConfigPathFromArgs 按优先级解析配置文件路径，explicit 表示路径来自环境变量或命令行。
func ConfigPathFromArgs(args []string) (path string, explicit bool, err error) {
	path = DefaultConfigPath
	if envPath := strings.TrimSpace(os.Getenv(ConfigPathEnv)); envPath != "" {
		path, explicit = envPath, true
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return "", false, merr.WrapErrParameterMissing("--config", "missing value after --config")
			}
			path, explicit = args[i+1], true
			i++
			continue
		}
		if val, ok := strings.CutPrefix(arg, "--config="); ok && val != "" {
			path, explicit = val, true
		}
	}
	return path, explicit, nil
}

// loadConfig resolves config file path and loads it via viper wrapper.
func (a *Application) loadConfig(args []string) error {
	path, explicit, err := ConfigPathFromArgs(args)
	if err != nil {
		return err
	}

	v := zviper.New()
	defaults := DefaultConfig()
	if err := v.SetDefaults("log", defaults.Log); err != nil {
		return err
	}
	if err := v.SetDefaults("storage", defaults.Storage); err != nil {
		return err
	}

	if err := v.LoadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return merr.WrapErrIoFailed(path, err)
		}
		path = ""
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return merr.WrapErrParameterInvalidMsg("bad config %q: %s", path, err.Error())
	}
	a.cfg = cfg
	a.path = path
	return nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	logger, props, err := zlog.InitLogger(&a.cfg.Log)
	if err != nil {
		return merr.WrapErrParameterInvalidMsg("init global logger: %s", err.Error())
	}
	zlog.ReplaceGlobals(logger, props)

	if len(a.cfg.Logging) == 0 {
		return nil
	}
	a.loggers = make(map[string]*zlog.MLogger, len(a.cfg.Logging))
	for name, lc := range a.cfg.Logging {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return merr.WrapErrParameterInvalidMsg("init module logger %q: %s", name, err.Error())
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger}
	}
	return nil
}
