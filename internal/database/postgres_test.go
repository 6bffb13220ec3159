package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db",
		Port:     "5432",
		User:     "affiliate",
		Password: "secret",
		DBName:   "catalog",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=affiliate password=secret dbname=catalog sslmode=disable", cfg.DSN())
}
