package config

import (
	"errors"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port            string
	DatabaseDSN     string
	JWTSecret       string
	Env             string
	TokenTTLMinutes int
	BcryptCost      int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func Load() Config {
	port := getenv("APP_PORT", "8080")
	dsn := getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=messagely port=5432 sslmode=disable TimeZone=UTC")
	secret := getenv("JWT_SECRET", "dev-secret-change-me")
	env := getenv("APP_ENV", "dev")
	ttlStr := getenv("TOKEN_TTL_MINUTES", "60")
	costStr := getenv("BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost))
	ttl, err := strconv.Atoi(ttlStr)
	if err != nil || ttl < 0 {
		ttl = 60
	}
	cost, err := strconv.Atoi(costStr)
	if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Config{
		Port:            port,
		DatabaseDSN:     dsn,
		JWTSecret:       secret,
		Env:             env,
		TokenTTLMinutes: ttl,
		BcryptCost:      cost,
	}
}

// Validate 检查配置是否可用于启动，生产环境禁止默认签名密钥。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port is required")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("database dsn is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if cfg.Env != "dev" && cfg.JWTSecret == "dev-secret-change-me" {
		return errors.New("default jwt secret is not allowed outside dev")
	}
	return nil
}
