package audiolink

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lyuksovannyy/pipewire-simple-audio-link/pkg/audiolink/util"
)

type ConfigManager struct {
	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool

	reloadConsumers []chan bool

	configDir  string
	userConfig *viper.Viper
	loadedFile bool

	lock    sync.RWMutex
	current Config
}

type Config struct {
	Tools ToolsConfig `mapstructure:"tools"`

	// zero means external tools may run for as long as they like
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	DisableTray bool `mapstructure:"disable_tray"`
	AutoApply   bool `mapstructure:"auto_apply"`

	Routes []Route `mapstructure:"routes"`
}

type ToolsConfig struct {
	Dump string `mapstructure:"dump"`
	Link string `mapstructure:"link"`
	CLI  string `mapstructure:"cli"`
}

const (
	userConfigFilename = "config.yaml"
	userConfigName     = "config"
	userConfigPath     = "."

	configType = "yaml"

	configKeyToolDump       = "tools.dump"
	configKeyToolLink       = "tools.link"
	configKeyToolCLI        = "tools.cli"
	configKeyCommandTimeout = "command_timeout"
	configKeyDisableTray    = "disable_tray"
	configKeyAutoApply      = "auto_apply"
	configKeyRoutes         = "routes"

	defaultDumpTool = "pw-dump"
	defaultLinkTool = "pw-link"
	defaultCLITool  = "pw-cli"
)

func NewConfig(logger *zap.SugaredLogger, notifier Notifier) (*ConfigManager, error) {
	return newConfigManager(logger, notifier, userConfigPath)
}

func newConfigManager(logger *zap.SugaredLogger, notifier Notifier, configDir string) (*ConfigManager, error) {
	logger = logger.Named("config")

	cc := &ConfigManager{
		logger:             logger,
		notifier:           notifier,
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
		configDir:          configDir,
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(configDir)

	userConfig.SetDefault(configKeyToolDump, defaultDumpTool)
	userConfig.SetDefault(configKeyToolLink, defaultLinkTool)
	userConfig.SetDefault(configKeyToolCLI, defaultCLITool)
	userConfig.SetDefault(configKeyCommandTimeout, time.Duration(0))
	userConfig.SetDefault(configKeyDisableTray, false)
	userConfig.SetDefault(configKeyAutoApply, false)
	userConfig.SetDefault(configKeyRoutes, []map[string]interface{}{})

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc, nil
}

func (cc *ConfigManager) configFilepath() string {
	return filepath.Join(cc.configDir, userConfigFilename)
}

// Load reads config.yaml if it exists. A missing file is fine, defaults apply.
func (cc *ConfigManager) Load() error {
	path := cc.configFilepath()
	cc.logger.Debugw("Loading config", "path", path)

	if util.FileExists(path) {
		if err := cc.userConfig.ReadInConfig(); err != nil {
			cc.logger.Warnw("Viper failed to read user config", "error", err)

			// if the error is yaml-format-related, show a sensible error. otherwise, show 'em to the logs
			if strings.Contains(err.Error(), "yaml:") {
				cc.notifier.Notify("Invalid configuration!",
					fmt.Sprintf("Please make sure %s is in a valid YAML format.", userConfigFilename))
			} else {
				cc.notifier.Notify("Error loading configuration!", "Please check audiolink's logs for more details.")
			}

			return fmt.Errorf("read user config: %w", err)
		}

		cc.loadedFile = true
	} else {
		cc.logger.Infow("Config file not found, using defaults", "path", path)
	}

	if err := cc.populateFromViper(); err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		return fmt.Errorf("populate config fields: %w", err)
	}

	current := cc.Current()

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"tools", current.Tools,
		"commandTimeout", current.CommandTimeout,
		"autoApply", current.AutoApply,
		"routes", len(current.Routes))

	return nil
}

// Current returns a copy of the active configuration
func (cc *ConfigManager) Current() Config {
	cc.lock.RLock()
	defer cc.lock.RUnlock()

	current := cc.current
	current.Routes = append([]Route(nil), cc.current.Routes...)

	return current
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *ConfigManager) SubscribeToChanges() chan bool {
	c := make(chan bool)
	cc.reloadConsumers = append(cc.reloadConsumers, c)

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen
func (cc *ConfigManager) WatchConfigFileChanges() {
	if !cc.loadedFile {
		cc.logger.Debug("No config file loaded, nothing to watch")
		<-cc.stopWatcherChannel
		return
	}

	cc.logger.Debugw("Starting to watch user config file for changes", "path", cc.configFilepath())

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	cc.userConfig.WatchConfig()
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {
		if event.Op&fsnotify.Write != fsnotify.Write {
			return
		}

		now := time.Now()

		// many editors write the file twice
		if !lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {
			return
		}

		cc.logger.Debugw("Config file modified, attempting reload", "event", event)

		// let the editor flush the new contents to disk
		<-time.After(delayBetweenEventAndReload)

		if err := cc.Load(); err != nil {
			cc.logger.Warnw("Failed to reload config file", "error", err)
		} else {
			cc.logger.Info("Reloaded config successfully")
			cc.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")

			cc.onConfigReloaded()
		}

		lastAttemptedReload = now
	})

	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(nil)
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *ConfigManager) StopWatchingConfigFile() {
	cc.stopWatcherChannel <- true
}

func (cc *ConfigManager) populateFromViper() error {
	var next Config

	err := cc.userConfig.Unmarshal(&next, func(dConf *mapstructure.DecoderConfig) {
		dConf.WeaklyTypedInput = false
	})
	if err != nil {
		return err
	}

	cc.lock.Lock()
	cc.current = next
	cc.lock.Unlock()

	cc.logger.Debug("Populated config fields from viper")

	return nil
}

func (cc *ConfigManager) onConfigReloaded() {
	cc.logger.Debug("Notifying consumers about configuration reload")

	for _, consumer := range cc.reloadConsumers {
		consumer <- true
	}
}
