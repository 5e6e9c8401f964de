package focusflow

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/focusflowhq/focusflow/pkg/configutil"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	BasePrompt    string              `mapstructure:"base_prompt"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Transports    TransportsConfig    `mapstructure:"transports"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	SeedDemoData bool   `mapstructure:"seed_demo_data"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	LLM VendorConfig `mapstructure:"llm"`
}

type AgentConfig struct {
	MaxRounds    int    `mapstructure:"max_rounds"`
	FallbackText string `mapstructure:"fallback_text"`
	BudgetText   string `mapstructure:"budget_text"`
}

type TransportsConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

type HTTPConfig struct {
	Addr             string   `mapstructure:"addr"`
	AllowAnyOrigin   bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	ReadTimeoutS     int      `mapstructure:"read_timeout_s"`
	WriteTimeoutS    int      `mapstructure:"write_timeout_s"`
	ShutdownTimeoutS int      `mapstructure:"shutdown_timeout_s"`
}

type ObservabilityConfig struct {
	MetricsFile string `mapstructure:"metrics_file"`
	BufferSize  int    `mapstructure:"buffer_size"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("database.dsn", "focusflow.db")
	v.SetDefault("database.seed_demo_data", false)
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("vendors.llm.provider", "gemini")
	v.SetDefault("agent.max_rounds", 8)
	v.SetDefault("transports.http.addr", ":8080")
	v.SetDefault("transports.http.allow_any_origin", true)
	v.SetDefault("transports.http.read_timeout_s", 15)
	v.SetDefault("transports.http.write_timeout_s", 120)
	v.SetDefault("transports.http.shutdown_timeout_s", 10)
	v.SetDefault("observability.metrics_file", "")
	v.SetDefault("observability.buffer_size", 2048)
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.Database.DSN, "database.dsn"); err != nil {
		return err
	}
	if err := configutil.RequireString(c.Auth.JWTSecret, "auth.jwt_secret"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Vendors.LLM.Provider) == "" {
		return fmt.Errorf("vendors.llm.provider is required")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.LLM.Settings = expandSettings(cfg.Vendors.LLM.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
