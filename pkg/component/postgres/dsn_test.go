package postgres

import (
	"strings"
	"testing"

	options "github.com/ai-nk/rag-service/pkg/options/postgres"
)

func TestBuildDSN(t *testing.T) {
	opts := options.NewOptions()
	opts.Host = "db.internal"
	opts.Port = 5433
	opts.Username = "rag"
	opts.Password = "secret"
	opts.Database = "ai_nk"

	dsn := BuildDSN(opts)
	for _, want := range []string{
		"host=db.internal",
		"port=5433",
		"user=rag",
		"password=secret",
		"dbname=ai_nk",
		"sslmode=disable",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
}

func TestBuildDSNNil(t *testing.T) {
	if got := BuildDSN(nil); got != "" {
		t.Errorf("BuildDSN(nil) = %q, want empty", got)
	}
}

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"plain", "plain"},
		{"with space", "'with space'"},
		{"qu'ote", `'qu\'ote'`},
		{`back\slash`, `'back\\slash'`},
	}
	for _, tt := range tests {
		if got := escapeValue(tt.in); got != tt.want {
			t.Errorf("escapeValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
