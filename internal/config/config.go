package config

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config carries the env-driven settings. DB_TYPE selects sqlite (default)
// or postgres; ORIGIN is the service origin used to recognize local
// reference URIs.
type Config struct {
	DBType    string
	DBPath    string
	DBDSN     string
	Origin    string
	RedisAddr string
}

func LoadConfig() *Config {
	cnf := &Config{
		DBType:    getenv("DB_TYPE", "sqlite"),
		DBPath:    getenv("DB_PATH", ".db/refgraph.db"),
		DBDSN:     os.Getenv("DB_DSN"),
		Origin:    getenv("ORIGIN", "http://localhost"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
	}

	return cnf
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetDb opens the configured database. TranslateError maps driver unique
// violations to gorm.ErrDuplicatedKey, which the edge store relies on.
func GetDb(cnf *Config) *gorm.DB {
	gormConfig := &gorm.Config{TranslateError: true}

	var (
		db  *gorm.DB
		err error
	)
	switch cnf.DBType {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cnf.DBDSN), gormConfig)
	default:
		db, err = gorm.Open(sqlite.Open(cnf.DBPath), gormConfig)
	}

	if err != nil {
		logrus.Fatalf("failed to connect to database: %v", err)
	}

	return db
}
