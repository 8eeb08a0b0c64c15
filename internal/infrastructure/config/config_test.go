package config

import (
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{Host: "localhost", Port: 5432},
		Redis:    RedisConfig{Port: 6379},
		Gateway:  GatewayConfig{SpaceID: 5},
		Checkout: CheckoutConfig{WaitTimeout: 20 * time.Second, PollInterval: 500 * time.Millisecond},
	}
}

func TestConfig_ValidatesCleanly(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_MissingSpaceID(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.SpaceID = 0
	assert.ErrorIs(t, cfg.Validate(), domainErrors.ErrConfigIncomplete)
}

func TestGatewayConfig_Validate(t *testing.T) {
	g := GatewayConfig{SpaceID: 5}
	assert.NoError(t, g.Validate())

	g.SpaceID = 0
	assert.ErrorIs(t, g.Validate(), domainErrors.ErrConfigIncomplete)

	g.SpaceID = -1
	assert.ErrorIs(t, g.Validate(), domainErrors.ErrConfigIncomplete)
}

func TestConfig_ShortAppSecretRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.AppSecret = "too-short"
	assert.Error(t, cfg.Validate())

	cfg.Gateway.AppSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestConfig_CheckoutTimingsRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Checkout.PollInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: 5432, User: "gateway", Password: "secret",
		Database: "gateway", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=gateway password=secret dbname=gateway sslmode=disable",
		db.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, "cache:6379", r.RedisAddr())
}
