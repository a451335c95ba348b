package config

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"
)

var (
	DB         *sql.DB
	DBDriver   string
	initDBOnce sync.Once
)

// InitDB opens the SQL database backing the usage store as a singleton.
// Only called when USAGE_STORE is sqlite or postgres.
func InitDB() error {
	var initError error
	initDBOnce.Do(func() {
		var (
			driver  string
			connStr string
		)
		switch UsageStore {
		case "sqlite":
			driver = "sqlite"
			connStr = SQLitePath
		case "postgres":
			driver = "postgres"
			connStr = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
				PostgresUser, PostgresPassword, PostgresHost, PostgresPort, PostgresDB)
		default:
			initError = fmt.Errorf("usage store %q has no SQL database", UsageStore)
			return
		}

		db, err := sql.Open(driver, connStr)
		if err != nil {
			initError = fmt.Errorf("failed to open %s connection: %w", driver, err)
			return
		}

		if driver == "sqlite" {
			// one writer at a time; sqlite serializes anyway
			db.SetMaxOpenConns(1)
		} else {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(25)
			db.SetConnMaxLifetime(10 * time.Minute)
		}

		if err := db.Ping(); err != nil {
			initError = fmt.Errorf("failed to ping %s database: %w", driver, err)
			return
		}

		DB = db
		DBDriver = driver
		log.Printf("✅ Connected to %s usage database", driver)
	})

	return initError
}

// CloseDB closes the database connection gracefully
func CloseDB() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
