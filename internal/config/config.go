// Package config loads dashgen settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/matthewbaird/dashgen/internal/schema"
)

// EnvPrefix prefixes every environment override, e.g. DASHGEN_SERVER_PORT.
const EnvPrefix = "DASHGEN"

// Config is the full settings tree.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Generator Generator `mapstructure:"generator"`
	Runtime   Runtime   `mapstructure:"runtime"`
	Logger    Logger    `mapstructure:"logger"`
}

type Server struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

type Database struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// Generator controls input validation and where artifacts are written.
type Generator struct {
	Root     string `mapstructure:"root" validate:"required"` // Next.js project root
	Strict   bool   `mapstructure:"strict"`
	MaxDepth int    `mapstructure:"max_depth" validate:"min=1,max=64"`
}

// Runtime configures the module runtime serving generated CRUD endpoints.
type Runtime struct {
	ModulesDir    string `mapstructure:"modules_dir"`
	Store         string `mapstructure:"store" validate:"oneof=sqlite memory mongo"`
	MongoURI      string `mapstructure:"mongo_uri" validate:"required_if=Store mongo"`
	MongoDatabase string `mapstructure:"mongo_database" validate:"required_if=Store mongo"`
}

type Logger struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	Output string `mapstructure:"output" validate:"oneof=stdout stderr file"`
	File   string `mapstructure:"file" validate:"required_if=Output file"`
}

// SchemaOptions returns the validation options of the generator settings.
func (c *Config) SchemaOptions() schema.Options {
	return schema.Options{Strict: c.Generator.Strict, MaxDepth: c.Generator.MaxDepth}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "file:dashgen.db?_pragma=foreign_keys(1)")
	v.SetDefault("generator.root", ".")
	v.SetDefault("generator.strict", true)
	v.SetDefault("generator.max_depth", schema.DefaultMaxDepth)
	v.SetDefault("runtime.modules_dir", "")
	v.SetDefault("runtime.store", "sqlite")
	v.SetDefault("runtime.mongo_uri", "")
	v.SetDefault("runtime.mongo_database", "dashgen")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.file", "")
}

// Load reads configPath when it is set, or dashgen.yaml from the working
// directory when present, then applies environment overrides. PORT and
// DATABASE_URL are honored as well as their DASHGEN_ forms.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DATABASE_URL")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("dashgen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
