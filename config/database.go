package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ConnectDatabase opens the database configured by cfg and stores it for GetDB
func ConnectDatabase(cfg *Config) error {
	if cfg == nil || cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is not configured")
	}

	dialector, err := dialectorFor(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(GormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Connection pooling configuration
	if cfg.DatabaseDriver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	DB = db
	log.Printf("Database connection established successfully (driver=%s)", cfg.DatabaseDriver)
	return nil
}

func dialectorFor(driver, url string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres, "":
		return postgres.Open(url), nil
	case DriverSQLite:
		return sqlite.Open(url), nil
	case DriverMySQL:
		return mysql.Open(mysqlDSN(url)), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// mysqlDSN converts a mysql:// URL into the DSN format the driver expects.
// Values that are already DSNs pass through unchanged.
func mysqlDSN(url string) string {
	if !strings.HasPrefix(url, "mysql://") {
		return url
	}
	raw := strings.TrimPrefix(url, "mysql://")
	creds, rest, ok := strings.Cut(raw, "@")
	if !ok {
		return url
	}
	hostPort, dbName, ok := strings.Cut(rest, "/")
	if !ok {
		return url
	}
	params := "?charset=utf8mb4&parseTime=True&loc=Local"
	if name, query, found := strings.Cut(dbName, "?"); found {
		dbName = name
		params = "?" + query
	}
	return fmt.Sprintf("%s@tcp(%s)/%s%s", creds, hostPort, dbName, params)
}

// GormLogLevel maps LOG_LEVEL to a GORM logger level
func GormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB sets the database instance (primarily for testing)
func SetDB(db *gorm.DB) {
	DB = db
}
