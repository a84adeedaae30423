package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds database connection settings. It is loaded separately from the core config.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	WaitSeconds    int    `yaml:"wait_seconds" envconfig:"DB_WAIT_SECONDS"`
}

// Normalize fills defaults and rejects unknown drivers.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "":
		c.Driver = DriverMemory
	case "postgresql", "pg":
		c.Driver = DriverPostgres
	case "sqlite3":
		c.Driver = DriverSQLite
	}
	switch c.Driver {
	case DriverPostgres:
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.Name == "" {
			return fmt.Errorf("database: name is required for postgres")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Path) == "" {
			c.Path = "chatbot.db"
		}
		c.MaxConnections = 1
	case DriverMemory:
		return nil
	default:
		return fmt.Errorf("database: unsupported driver %q", c.Driver)
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	if c.WaitSeconds <= 0 {
		c.WaitSeconds = 30
	}
	return nil
}

// DSN returns the database/sql data source name for the driver.
func (c Config) DSN() string {
	switch c.Driver {
	case DriverSQLite:
		return c.Path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	default:
		return fmt.Sprintf(
			"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
		)
	}
}

// MigrationURL returns the golang-migrate database URL for the driver.
func (c Config) MigrationURL() string {
	switch c.Driver {
	case DriverSQLite:
		return "sqlite://" + c.Path
	default:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + c.Port,
			Path:     "/" + c.Name,
			RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
		}
		return u.String()
	}
}

// Persistent reports whether the driver stores data outside the process.
func (c Config) Persistent() bool {
	return c.Driver == DriverPostgres || c.Driver == DriverSQLite
}
