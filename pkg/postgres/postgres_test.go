package postgres

import (
	"golang-autotrade/config"
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	cfg := config.Database{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "trade", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=trade port=5432 sslmode=disable TimeZone=UTC", DSN(cfg))
	assert.Equal(t, "postgres://u:p@db:5432/trade?sslmode=disable", MigrationURL(cfg))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, gormLogLevel("Silent"))
	assert.Equal(t, gormlogger.Info, gormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel(""))
}
