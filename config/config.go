package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LLMProvider defines an OpenAI-compatible endpoint.
type LLMProvider struct {
	APIKey  string `mapstructure:"api_key"` // Name of the environment variable holding the key
	BaseURL string `mapstructure:"base_url"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release or test
}

// DatabaseConfig selects the gorm dialect.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`    // "memory", a file path, or a postgres DSN
}

// LoggingConfig holds settings for the zap logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	Level      string `mapstructure:"level"`
	Files      bool   `mapstructure:"files"`
	Console    bool   `mapstructure:"console"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AssessmentConfig holds questionnaire settings.
type AssessmentConfig struct {
	DefaultLanguage string        `mapstructure:"default_language"`
	GuestResultTTL  time.Duration `mapstructure:"guest_result_ttl"`
	CatalogDir      string        `mapstructure:"catalog_dir"` // Optional directory of instrument overrides
}

// AnalysisConfig selects the provider used to analyse submitted assessments.
type AnalysisConfig struct {
	Provider string `mapstructure:"provider"` // Key into llm_providers; "local" disables the remote call
	Model    string `mapstructure:"model"`
}

// ChatConfig configures the help chat widget.
type ChatConfig struct {
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Config holds the application's configuration.
type Config struct {
	Server         ServerConfig           `mapstructure:"server"`
	Database       DatabaseConfig         `mapstructure:"database"`
	Logging        LoggingConfig          `mapstructure:"logging"`
	Assessment     AssessmentConfig       `mapstructure:"assessment"`
	Analysis       AnalysisConfig         `mapstructure:"analysis"`
	Chat           ChatConfig             `mapstructure:"chat"`
	LLMProviders   map[string]LLMProvider `mapstructure:"llm_providers"`
	GuestChatQuota int                    `mapstructure:"guest_chat_quota"`
	CORS           CORSConfig             `mapstructure:"cors"`

	v        *viper.Viper
	watching sync.Once
}

const defaultSystemPrompt = "You are a friendly health screening assistant. Answer in the user's language (Thai or English). " +
	"You do not diagnose. Encourage users with high risk results to contact a doctor, and give the 1323 mental health hotline when self-harm is mentioned."

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "memory")

	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.files", true)
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 7)
	v.SetDefault("logging.compress", true)

	v.SetDefault("assessment.default_language", "th")
	v.SetDefault("assessment.guest_result_ttl", "24h")
	v.SetDefault("assessment.catalog_dir", "")

	v.SetDefault("analysis.provider", "openai")
	v.SetDefault("analysis.model", "gpt-4o-mini")

	v.SetDefault("chat.provider", "openai")
	v.SetDefault("chat.model", "gpt-4o-mini")
	v.SetDefault("chat.system_prompt", defaultSystemPrompt)
	v.SetDefault("chat.history_limit", 10)

	v.SetDefault("guest_chat_quota", 20)
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads config.yaml (from path when set, otherwise from ./config or the working directory),
// then applies HEALTHSCREEN_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HEALTHSCREEN") // e.g. HEALTHSCREEN_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.v = v
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.resolveAPIKeys()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	switch c.Assessment.DefaultLanguage {
	case "th", "en":
	default:
		return fmt.Errorf("assessment.default_language must be th or en, got %q", c.Assessment.DefaultLanguage)
	}
	if c.GuestChatQuota < 0 {
		return fmt.Errorf("guest_chat_quota must not be negative, got %d", c.GuestChatQuota)
	}
	if c.Assessment.GuestResultTTL < 0 {
		return fmt.Errorf("assessment.guest_result_ttl must not be negative, got %s", c.Assessment.GuestResultTTL)
	}
	return nil
}

var envVarName = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// resolveAPIKeys replaces each provider's api_key, which names an environment variable, with that
// variable's value. A name whose variable is unset resolves to "". Anything else is kept as a literal key.
func (c *Config) resolveAPIKeys() {
	for name, p := range c.LLMProviders {
		if p.APIKey == "" {
			continue
		}
		if value, ok := os.LookupEnv(p.APIKey); ok {
			p.APIKey = value
		} else if envVarName.MatchString(p.APIKey) {
			p.APIKey = ""
		}
		c.LLMProviders[name] = p
	}
}

// Provider returns the named provider when it exists and has an API key.
func (c *Config) Provider(name string) (LLMProvider, bool) {
	p, ok := c.LLMProviders[name]
	if !ok || p.APIKey == "" {
		return LLMProvider{}, false
	}
	return p, true
}

// Watch reloads the file on change and hands the new configuration to onChange. Only settings
// that are safe to swap at runtime should be applied by the callback.
func (c *Config) Watch(log *zap.Logger, onChange func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		log.Info("No configuration file in use, hot reload disabled")
		return
	}
	c.watching.Do(func() {
		c.v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
			next, err := decode(c.v)
			if err != nil {
				log.Error("Error reloading configuration", zap.Error(err))
				return
			}
			onChange(next)
		})
		c.v.WatchConfig()
	})
}
