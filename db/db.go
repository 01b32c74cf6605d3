package db

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"memoria/config"
	"memoria/models"
)

// Open connects to MySQL when a DSN is configured and to SQLite otherwise,
// then migrates the schema.
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	}
	if debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}
	var dialector gorm.Dialector
	if cfg.MySQLDSN != "" {
		parsed, err := mysqldriver.ParseDSN(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
		}
		log.Info().Str("addr", parsed.Addr).Str("db", parsed.DBName).Str("user", parsed.User).Msg("Using MySQL")
		dialector = mysql.Open(cfg.MySQLDSN)
	} else {
		log.Info().Str("file", cfg.SQLiteFile).Msg("Using SQLite")
		dialector = sqlite.Open(cfg.SQLiteFile)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	if err = models.Init(db); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return db, nil
}
