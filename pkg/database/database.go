package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Connection pool configuration constants
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultConnMaxIdleTime = 30 * time.Second
)

type Config struct {
	Driver string

	// Postgres settings
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// SQLite settings
	Path string

	// Connection pool settings (optional)
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a database configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Driver:          DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "",
		DBName:          "talpan",
		SSLMode:         "disable",
		Path:            "talpan.db",
		MaxOpenConns:    DefaultMaxOpenConns,
		MaxIdleConns:    DefaultMaxIdleConns,
		ConnMaxLifetime: DefaultConnMaxLifetime,
		ConnMaxIdleTime: DefaultConnMaxIdleTime,
	}
}

// BuildDSN builds the driver-specific data source name from config
func (c Config) BuildDSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type DB struct {
	*sql.DB
	driver string
	logger *logger.Logger
}

func NewConnection(config Config, log *logger.Logger) (*DB, error) {
	driver := config.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	log.Info("Establishing database connection",
		"driver", driver,
		"database", config.DBName,
		"path", config.Path)

	db, err := sql.Open(driver, config.BuildDSN())
	if err != nil {
		log.Error("Failed to open database connection", "error", err)
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if driver == DriverSQLite {
		// SQLite supports one writer at a time; keep a single connection to
		// avoid SQLITE_BUSY under contention.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applySQLitePragmas(db); err != nil {
			db.Close()
			log.Error("Failed to apply SQLite pragmas", "error", err)
			return nil, fmt.Errorf("failed to apply pragmas: %v", err)
		}
	} else {
		maxOpenConns := config.MaxOpenConns
		if maxOpenConns <= 0 {
			maxOpenConns = DefaultMaxOpenConns
		}

		maxIdleConns := config.MaxIdleConns
		if maxIdleConns <= 0 {
			maxIdleConns = DefaultMaxIdleConns
		}

		connMaxLifetime := config.ConnMaxLifetime
		if connMaxLifetime <= 0 {
			connMaxLifetime = DefaultConnMaxLifetime
		}

		connMaxIdleTime := config.ConnMaxIdleTime
		if connMaxIdleTime <= 0 {
			connMaxIdleTime = DefaultConnMaxIdleTime
		}

		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)
		db.SetConnMaxIdleTime(connMaxIdleTime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		log.Error("Failed to ping database", "error", err)
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	log.Info("Database connection established successfully", "driver", driver)
	return &DB{DB: db, driver: driver, logger: log}, nil
}

// applySQLitePragmas sets required SQLite configuration: WAL mode for
// concurrent reads, a busy timeout for lock contention, and foreign keys.
func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %v", pragma, err)
		}
	}
	return nil
}

// Driver returns the configured driver name
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}

// HealthCheck returns the database health status
func (db *DB) HealthCheck() error {
	db.logger.Debug("Performing database health check")

	if err := db.Ping(); err != nil {
		db.logger.Error("Database health check failed", "error", err)
		return fmt.Errorf("database ping failed: %v", err)
	}

	var result int
	err := db.QueryRow("SELECT 1").Scan(&result)
	if err != nil {
		db.logger.Error("Database query test failed", "error", err)
		return fmt.Errorf("database query test failed: %v", err)
	}

	if result != 1 {
		return fmt.Errorf("unexpected query result: got %d, expected 1", result)
	}

	db.logger.Debug("Database health check passed")
	return nil
}

// ValidateConnection validates the database connection with timeout
func (db *DB) ValidateConnection(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		db.logger.Error("Database connection validation failed", "error", err, "timeout", timeout)
		return fmt.Errorf("database ping failed within %v: %v", timeout, err)
	}

	return nil
}
