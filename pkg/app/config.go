package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/blurcam/pkg/log"
)

const (
	configFlagName = "config"

	// envPrefix prefixes environment overrides, e.g. BLURCAM_HTTP_ADDR for --http.addr.
	envPrefix = "BLURCAM"
)

// addConfigFlag registers --config on fs.
func addConfigFlag(fs *pflag.FlagSet, cfgFile *string) {
	fs.StringVarP(cfgFile, configFlagName, "c", *cfgFile,
		"Read configuration from the specified file, support JSON, TOML, YAML, HCL, or Java properties formats.")
}

// newViper prepares a viper instance reading name.yaml from the usual places
// unless cfgFile is set, with environment overrides.
func newViper(name, cfgFile string) *viper.Viper {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(name)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".blurcam"))
		}
		v.AddConfigPath("/etc/blurcam")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig merges the config file, environment and flags into opts.
// Flags set on the command line win over the file.
func loadConfig(v *viper.Viper, fs *pflag.FlagSet, opts any) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read configuration file(%s): %w", v.ConfigFileUsed(), err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

// watchConfig reloads the log level whenever the config file changes.
// Other settings need a restart.
func watchConfig(v *viper.Viper) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := v.GetString("log.level")
		log.Info("Config file changed", "file", e.Name, "log.level", level)
		if level != "" {
			log.SetLevel(level)
		}
	})
	v.WatchConfig()
}
