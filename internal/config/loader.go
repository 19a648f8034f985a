package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rpattn/dataql/internal/db"
	"github.com/rpattn/dataql/internal/domain"
)

// Config is the process configuration.
type Config struct {
	Server     ServerConfig         `mapstructure:"server"`
	Schema     SchemaConfig         `mapstructure:"schema"`
	Namespaces map[string]db.Config `mapstructure:"namespaces"`
	Pagination PaginationConfig     `mapstructure:"pagination"`
	Log        LogConfig            `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

type PaginationConfig struct {
	ListName       string `mapstructure:"list_name"`
	TotalCountName string `mapstructure:"total_count_name"`
	TotalPageName  string `mapstructure:"total_page_name"`
	PageNoName     string `mapstructure:"page_no_name"`
	PageSizeName   string `mapstructure:"page_size_name"`
	DefaultSize    int    `mapstructure:"default_size"`
	MaxSize        int    `mapstructure:"max_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// PageNames returns the configured envelope names.
func (p PaginationConfig) PageNames() domain.PageNames {
	return domain.PageNames{
		List:       p.ListName,
		TotalCount: p.TotalCountName,
		TotalPage:  p.TotalPageName,
		PageNo:     p.PageNoName,
		PageSize:   p.PageSizeName,
	}
}

func setDefaults(v *viper.Viper) {
	names := domain.DefaultPageNames()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("schema.path", "schema.yaml")
	v.SetDefault("pagination.list_name", names.List)
	v.SetDefault("pagination.total_count_name", names.TotalCount)
	v.SetDefault("pagination.total_page_name", names.TotalPage)
	v.SetDefault("pagination.page_no_name", names.PageNo)
	v.SetDefault("pagination.page_size_name", names.PageSize)
	v.SetDefault("pagination.default_size", 10)
	v.SetDefault("pagination.max_size", 1000)
	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from dir, when present, and applies DATAQL_
// environment overrides on top of the defaults.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("DATAQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Namespaces are only known once the file is read; bind their keys so
	// DATAQL_NAMESPACES_<NAME>_DSN and friends can override them.
	for name := range v.GetStringMap("namespaces") {
		for _, key := range []string{"driver", "dsn", "max_conns", "migrations"} {
			_ = v.BindEnv("namespaces." + name + "." + key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	if c.Pagination.DefaultSize <= 0 {
		return fmt.Errorf("pagination.default_size must be positive, got %d", c.Pagination.DefaultSize)
	}
	if c.Pagination.MaxSize < 0 {
		return fmt.Errorf("pagination.max_size must not be negative, got %d", c.Pagination.MaxSize)
	}
	for name, ns := range c.Namespaces {
		if err := ns.Validate(); err != nil {
			return fmt.Errorf("namespace %s: %w", name, err)
		}
	}
	return nil
}
