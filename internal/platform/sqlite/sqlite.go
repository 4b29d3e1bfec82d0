package sqlite

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the sqlite database at path. Foreign keys back the
// session-message cascade, WAL keeps concurrent readers from blocking the
// writer. Both pragmas ride on the DSN: they are per-connection, and a
// one-shot Exec would be lost when the pool recycles its connection.
func New(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(withPragmas(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql.DB handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_journal_mode=WAL"
}
