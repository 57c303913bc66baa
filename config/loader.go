package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts file probing and .env loading so the loader can be
// tested without touching the real filesystem.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderOptions holds the loader's dependencies and file overrides.
type LoaderOptions struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption customizes Load.
type LoaderOption func(*LoaderOptions)

// WithFileSystem substitutes the filesystem, for tests.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(o *LoaderOptions) { o.FileSystem = fs }
}

// WithConfigFile pins the config file instead of searching for it.
func WithConfigFile(path string) LoaderOption {
	return func(o *LoaderOptions) { o.ConfigFile = path }
}

// WithEnvFile pins the .env file instead of searching for it.
func WithEnvFile(path string) LoaderOption {
	return func(o *LoaderOptions) { o.EnvFile = path }
}

// configSearchPaths are probed in order when no config file is given.
func configSearchPaths(service string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", service),
		fmt.Sprintf("../cmd/%s/config.yml", service),
		"./config/config.yml",
		"../config/config.yml",
		"./config.yml",
	}
}

// envSearchPaths are probed in order when no .env file is given.
func envSearchPaths(service string) []string {
	return []string{
		fmt.Sprintf(".env.%s", service),
		fmt.Sprintf("./cmd/%s/.env", service),
		"./config/.env",
		".env",
	}
}

// Load reads configuration for a service into cfg: YAML file first, then
// .env, then process environment variables, later sources overriding
// earlier ones. A missing config file is not an error; an unreadable one
// is.
func Load(service string, cfg interface{}, opts ...LoaderOption) error {
	o := LoaderOptions{FileSystem: osFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}

	if o.ConfigFile == "" {
		o.ConfigFile = firstExisting(o.FileSystem, configSearchPaths(service))
	}
	if o.EnvFile == "" {
		o.EnvFile = firstExisting(o.FileSystem, envSearchPaths(service))
	}

	if o.EnvFile != "" && o.FileSystem.Exists(o.EnvFile) {
		if err := o.FileSystem.LoadEnv(o.EnvFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", o.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(service, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvOverrides(v, service)

	if o.ConfigFile != "" && o.FileSystem.Exists(o.ConfigFile) {
		v.SetConfigFile(o.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", o.ConfigFile, err)
		}
	}

	// Environment overrides arrive as strings; let the decoder coerce
	// them into ints, bools, and durations.
	weakly := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(cfg, weakly); err != nil {
		return fmt.Errorf("unmarshaling config for %s: %w", service, err)
	}
	return nil
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// bindEnvOverrides maps prefixed environment variables onto nested viper
// keys, e.g. IDP_PERSISTENCE_BACKEND -> persistence.backend. An underscore
// may be a key separator or part of a key name (max_size), so every split
// variant is set; only ones matching real config keys ever take effect.
func bindEnvOverrides(v *viper.Viper, service string) {
	prefix := strings.ToUpper(strings.ReplaceAll(service, "-", "_")) + "_"
	for _, entry := range os.Environ() {
		pair := strings.SplitN(entry, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], prefix) {
			continue
		}
		raw := strings.ToLower(strings.TrimPrefix(pair[0], prefix))
		for _, key := range keyVariants(strings.Split(raw, "_")) {
			v.Set(key, pair[1])
		}
	}
}

// keyVariants returns every way of joining the words with "." or "_".
func keyVariants(words []string) []string {
	if len(words) == 1 {
		return []string{words[0]}
	}
	rest := keyVariants(words[1:])
	out := make([]string, 0, 2*len(rest))
	for _, r := range rest {
		out = append(out, words[0]+"."+r, words[0]+"_"+r)
	}
	return out
}
