package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const PROD_STRING = "prod"

// Env var naming an explicit config file.
const ConfigPathEnv = "RESERVATION_CONFIG"

const defaultMaxConns = 5

// Config holds all application configuration.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

// DBConfig may be given either as a full DSN or as its parts.
type DBConfig struct {
	DSN            string `yaml:"dsn"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
	AutoMigrate    bool   `yaml:"auto_migrate"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	Env          string `yaml:"env"`
	ProdOrigins  string `yaml:"prod_origins"`
	IsProduction bool   `yaml:"-"`
}

// AuthConfig enables bearer auth on /v1 when JWTSecret is non-empty.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the optional YAML file at path (or the first default location
// found when path is empty), then .env, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	file, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := cfg.loadFile(file); err != nil {
			return nil, err
		}
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env file: %v", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePath returns an explicit path unchanged; otherwise it searches
// RESERVATION_CONFIG and the default locations. An empty result means no file.
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p, nil
	}
	for _, p := range defaultPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func defaultPaths() []string {
	paths := []string{"./reservation.yml", "/etc/reservation.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reservation.yml"))
	}
	return paths
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DB.DSN = getEnv("DB_DSN", c.DB.DSN)
	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	c.Server.Env = getEnv("APP_ENV", c.Server.Env)
	c.Server.ProdOrigins = getEnv("PROD_ORIGINS", c.Server.ProdOrigins)
	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	var err error
	c.DB.MaxConnections, err = getEnvAsInt("DB_MAX_CONNS", c.DB.MaxConnections)
	if err != nil {
		return fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	c.DB.AutoMigrate, err = getEnvAsBool("DB_AUTO_MIGRATE", c.DB.AutoMigrate)
	if err != nil {
		return fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DB.MaxConnections <= 0 {
		c.DB.MaxConnections = defaultMaxConns
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "dev"
	}
	c.Server.IsProduction = c.Server.Env == PROD_STRING
}

func (c *Config) validate() error {
	if c.DB.DSN == "" && c.DB.Host == "" {
		return fmt.Errorf("DB_DSN or db.host is required")
	}
	if c.DB.DSN == "" && c.DB.DBName == "" {
		return fmt.Errorf("db.dbname is required when db.dsn is not set")
	}
	return nil
}

// ServerURL is the connection URL without a database name.
func (c *DBConfig) ServerURL() string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
	switch {
	case c.User != "" && c.Password != "":
		u.User = url.UserPassword(c.User, c.Password)
	case c.User != "":
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// DatabaseURL returns DSN when set, otherwise a URL built from the parts.
func (c *DBConfig) DatabaseURL() string {
	if c.DSN != "" {
		return c.DSN
	}
	u, err := url.Parse(c.ServerURL())
	if err != nil {
		return c.ServerURL()
	}
	u.Path = "/" + c.DBName
	return u.String()
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid boolean: %w", key, valStr, err)
	}

	return val, nil
}
