package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Host: "db", Port: 5433, User: "u", Password: "p",
		DBName: "chemscreen", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5433/chemscreen?sslmode=disable", cfg.DSN())
}

func TestNullableTime(t *testing.T) {
	assert.Nil(t, nullableTime(time.Time{}))

	now := time.Now()
	assert.Equal(t, now, nullableTime(now))
}
