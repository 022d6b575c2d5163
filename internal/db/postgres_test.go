package db

import (
	"testing"

	"tailor-pos/internal/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Host = "db"
	cfg.Database.Port = 5432
	cfg.Database.User = "pos"
	cfg.Database.Password = "p@ss/word"
	cfg.Database.Name = "tailor_pos"
	cfg.Database.SSLMode = "require"

	want := "postgres://pos:p%40ss%2Fword@db:5432/tailor_pos?sslmode=require"
	if got := DSN(cfg); got != want {
		t.Fatalf("DSN = %s, want %s", got, want)
	}
}
