package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/CIDgravity/snakelet"
)

// config structure
type Config struct {
	API          APIConfig          `mapstructure:"API"`
	Github       GithubConfig       `mapstructure:"GITHUB"`
	Publications PublicationsConfig `mapstructure:"PUBLICATIONS"`
	Cache        CacheConfig        `mapstructure:"CACHE"`
	Tasks        TasksConfig        `mapstructure:"TASKS"`
	Logs         LogsConfig         `mapstructure:"LOGS"`
}

type APIConfig struct {
	ListenPort string `mapstructure:"ListenPort"`
}

type GithubConfig struct {
	Username string `mapstructure:"Username"`
	Token    string `mapstructure:"Token"`
	BaseURL  string `mapstructure:"BaseURL"` // empty means api.github.com

	// repositories shown as executable even without the "executable" topic
	ExecutableProjects map[string]bool `mapstructure:"ExecutableProjects"`
	LanguageSampleSize int             `mapstructure:"LanguageSampleSize"`
}

type PublicationsConfig struct {
	DOIs       []string `mapstructure:"DOIs"`
	File       string   `mapstructure:"File"` // path on the storage filesystem or http(s) URL
	APIBaseURL string   `mapstructure:"APIBaseURL"`
}

type CacheConfig struct {
	Directory        string `mapstructure:"Directory"`
	FreshnessMinutes int    `mapstructure:"FreshnessMinutes"`
	FallbackMinutes  int    `mapstructure:"FallbackMinutes"`
}

type TasksConfig struct {
	MaxParallelTasksAllowed int `mapstructure:"MaxParallelTasksAllowed"`
}

type LogsConfig struct {
	Level            string `mapstructure:"Level"` // error | warn | info | debug - case insensitive
	OutputLogsAsJSON bool   `mapstructure:"OutputLogsAsJSON"`
}

// Freshness is the age under which cached github data is served without a refetch
func (c CacheConfig) Freshness() time.Duration {
	return time.Duration(c.FreshnessMinutes) * time.Minute
}

// Fallback is the extended age accepted when a fresh fetch failed entirely
func (c CacheConfig) Fallback() time.Duration {
	return time.Duration(c.FallbackMinutes) * time.Minute
}

// Load reads config/config.toml next to the binary or in the working directory.
// When no file can be found, the defaults are returned together with os.ErrNotExist
func Load() (*Config, error) {
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))

	if err != nil {
		return GetDefault(), err
	}

	// check config file exists
	configFilePath := dir + "/config/config.toml"

	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Stat("config/config.toml"); errors.Is(err, os.ErrNotExist) {
			return GetDefault(), err
		} else {
			configFilePath = "config/config.toml"
		}
	}

	// load default and config file content
	cfg := GetDefault()
	_, err = snakelet.InitAndLoad(cfg, configFilePath)

	if err != nil {
		return GetDefault(), err
	}

	return cfg, nil
}

// GetDefault
func GetDefault() *Config {
	return &Config{
		API: APIConfig{
			ListenPort: "5000",
		},
		Github: GithubConfig{
			Username:           "Hhhpraise",
			ExecutableProjects: map[string]bool{},
			LanguageSampleSize: 10,
		},
		Publications: PublicationsConfig{
			DOIs:       []string{},
			File:       "publications.txt",
			APIBaseURL: "https://api.crossref.org",
		},
		Cache: CacheConfig{
			Directory:        "data/cache",
			FreshnessMinutes: 60,
			FallbackMinutes:  24 * 60,
		},
		Tasks: TasksConfig{
			MaxParallelTasksAllowed: 8,
		},
		Logs: LogsConfig{
			Level:            "debug",
			OutputLogsAsJSON: false,
		},
	}
}
