package database

import "gorm.io/gorm"

// DB is the process wide connection, set by SetupDatabase.
var DB *gorm.DB

// GetDB returns the shared database connection
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the shared connection, used by tests and tools.
func SetDB(db *gorm.DB) {
	DB = db
}
