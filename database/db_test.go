package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig_ValidateDefaults(t *testing.T) {
	cfg := PostgresConfig{User: "catalog", Password: "secret", DBName: "catalog"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t,
		"host=localhost user=catalog password=secret dbname=catalog port=5432 sslmode=disable TimeZone=UTC",
		cfg.DSN(),
	)
}

func TestPostgresConfig_ValidateRequired(t *testing.T) {
	tests := []struct {
		name string
		cfg  PostgresConfig
		want string
	}{
		{"user", PostgresConfig{Password: "p", DBName: "d"}, "POSTGRES_USER"},
		{"password", PostgresConfig{User: "u", DBName: "d"}, "POSTGRES_PASSWORD"},
		{"db", PostgresConfig{User: "u", Password: "p"}, "POSTGRES_DB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
