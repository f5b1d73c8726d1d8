package postgres

import (
	"testing"
	"time"
)

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/app?sslmode=disable", PoolOptions{
		MaxConns:        8,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		ApplicationName: "identity-core",
	})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if cfg.MaxConns != 8 || cfg.MinConns != 2 || cfg.MaxConnLifetime != time.Hour {
		t.Fatalf("unexpected sizing %d/%d/%v", cfg.MaxConns, cfg.MinConns, cfg.MaxConnLifetime)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != "identity-core" {
		t.Fatalf("application_name = %q", got)
	}
}

func TestPoolConfigIgnoresInvalidMinimum(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/app", PoolOptions{MaxConns: 2, MinConns: 5})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if cfg.MinConns > cfg.MaxConns {
		t.Fatalf("min %d exceeds max %d", cfg.MinConns, cfg.MaxConns)
	}
	if _, err := poolConfig("postgres://u:p@localhost:5432/%zz", PoolOptions{}); err == nil {
		t.Fatal("expected parse error")
	}
}
