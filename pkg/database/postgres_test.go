package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/library-fee-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "fees", Password: "s3cret", Name: "library_fees", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=fees password=s3cret dbname=library_fees sslmode=disable", DSN(cfg))

	cfg.Password = `it's a pass\word`
	cfg.SSLMode = ""
	assert.Equal(t, `host=db port=5432 user=fees password='it\'s a pass\\word' dbname=library_fees`, DSN(cfg))
}
