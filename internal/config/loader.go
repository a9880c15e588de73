package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "ARCHEM"

// Sentinel errors returned by Load.
var (
	ErrConfigFileNotFound = errors.New("config: file not found")
	ErrConfigParseError   = errors.New("config: parse error")
	ErrConfigInvalid      = errors.New("config: validation failed")
)

type loadOptions struct {
	path      string
	overrides map[string]interface{}
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithConfigPath reads the YAML file at path before applying environment
// overrides.
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// WithOverrides sets keys after file and environment are read, e.g. from
// command-line flags.  Keys use the dotted form "server.port".
func WithOverrides(values map[string]interface{}) LoadOption {
	return func(o *loadOptions) { o.overrides = values }
}

// newViper builds a Viper instance with YAML file type, the ARCHEM_ env
// prefix and a key replacer mapping "." to "_", so "storage.badger.path"
// resolves to ARCHEM_STORAGE_BADGER_PATH.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v, reflect.TypeOf(Config{}), "")
	return v
}

// bindEnv registers every mapstructure key of t so Unmarshal sees env
// overrides for keys absent from the file.
func bindEnv(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			bindEnv(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// Load builds a Config from an optional YAML file and ARCHEM_* environment
// variables, applies defaults for unset fields and validates the result.
//
// Environment variable naming convention:
//
//	ARCHEM_<SECTION>_<FIELD>   e.g.  ARCHEM_SERVER_PORT, ARCHEM_REDIS_ADDR
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	v := newViper()
	if o.path != "" {
		if err := readFile(v, o.path); err != nil {
			return nil, err
		}
	}
	for k, val := range o.overrides {
		v.Set(k, val)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from ARCHEM_* environment variables.
func LoadFromEnv() (*Config, error) {
	return Load()
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %q", ErrConfigFileNotFound, path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrConfigParseError, path, err)
	}
	return nil
}

// unmarshalAndFinalize unmarshals viper state into a Config, applies
// defaults and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file is written.  It is intended for hot-reloading the log
// level; callers apply only the safe subset of changes at runtime.  A change
// that fails to parse or validate is reported to onError, when non-nil, and
// onChange is not called.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	if err := readFile(v, configPath); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps Load and panics on any error.  It is intended for main()
// where a config-load failure is always fatal.
func MustLoad(opts ...LoadOption) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
