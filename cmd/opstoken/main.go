// Command opstoken prints a JWT pair for the operator API.
//
//	opstoken -operator alice -role operator
//
// JWT_SECRET, JWT_ISSUER, JWT_AUDIENCE and the TTL vars are read from the
// environment (or .env), the same keys cmd/api verifies with.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ivr-gateway/internal/auth"
	"ivr-gateway/internal/config"
	"ivr-gateway/internal/rbac"
)

func main() {
	operatorID := flag.String("operator", "", "operator id (required)")
	role := flag.String("role", rbac.RoleOperator, "role: operator or admin")
	accessTTL := flag.Duration("ttl", 0, "access token ttl override")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*operatorID, *role, *accessTTL); err != nil {
		fmt.Fprintln(os.Stderr, "opstoken:", err)
		os.Exit(1)
	}
}

func run(operatorID, role string, ttl time.Duration) error {
	operatorID = strings.TrimSpace(operatorID)
	if operatorID == "" {
		return fmt.Errorf("-operator is required")
	}
	if !rbac.IsKnownRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	cfg := authConfigFromEnv()
	if ttl > 0 {
		cfg.AccessTokenTTL = ttl
	}
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		cfg.RefreshTokenTTL = cfg.AccessTokenTTL * 2
	}

	m, err := auth.NewManager(cfg)
	if err != nil {
		return err
	}
	pair, err := m.IssuePair(time.Now(), operatorID, role)
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}

	fmt.Printf("access_token=%s\nrefresh_token=%s\n", pair.AccessToken, pair.RefreshToken)
	return nil
}

func authConfigFromEnv() config.AuthConfig {
	c := config.AuthConfig{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		JWTAudience: strings.TrimSpace(os.Getenv("JWT_AUDIENCE")),
	}
	c.AccessTokenTTL, _ = time.ParseDuration(strings.TrimSpace(os.Getenv("JWT_ACCESS_TTL")))
	c.RefreshTokenTTL, _ = time.ParseDuration(strings.TrimSpace(os.Getenv("JWT_REFRESH_TTL")))
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	return c
}
