package postgres

import (
	"fmt"
	"strings"

	options "github.com/ai-nk/rag-service/pkg/options/postgres"
)

// BuildDSN creates a PostgreSQL DSN from the provided options.
//
// The password is escaped so values with spaces or quotes cannot break the
// key=value DSN format.
func BuildDSN(opts *options.Options) string {
	if opts == nil {
		return ""
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		opts.Host,
		opts.Port,
		opts.Username,
		escapeValue(opts.Password),
		opts.Database,
		opts.SSLMode,
	)
}

// escapeValue escapes a value for PostgreSQL DSN format. Values containing
// spaces, quotes or backslashes are wrapped in single quotes with quoting
// characters escaped.
func escapeValue(value string) string {
	if value == "" {
		return "''"
	}

	if strings.ContainsAny(value, " '\\") {
		escaped := strings.ReplaceAll(value, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "'", "\\'")
		return "'" + escaped + "'"
	}
	return value
}
