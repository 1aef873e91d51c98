package factory

import (
	"errors"
	"strings"

	"github.com/loykin/shepherd/internal/archive"
	ch "github.com/loykin/shepherd/internal/archive/clickhouse"
	pg "github.com/loykin/shepherd/internal/archive/postgres"
	sq "github.com/loykin/shepherd/internal/archive/sqlite"
)

// Config selects and parameterizes an archive backend.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// NewFromConfig builds a store based on the DSN scheme.
// Supported:
//   - sqlite:    "sqlite://<path>" or a bare filepath
//   - postgres:  "postgres://..." or "postgresql://..."
//   - clickhouse: "clickhouse://host:port"
func NewFromConfig(c Config) (archive.Store, error) {
	d := strings.TrimSpace(c.DSN)
	ld := strings.ToLower(d)
	switch {
	case ld == "":
		return nil, errors.New("empty archive DSN")
	case strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://"):
		return pg.New(d)
	case strings.HasPrefix(ld, "clickhouse://"):
		addr := strings.TrimPrefix(d, "clickhouse://")
		return ch.New(addr, c.Database, c.Username, c.Password, c.Table)
	case strings.HasPrefix(ld, "sqlite://"):
		return sq.New(strings.TrimPrefix(d, "sqlite://"))
	default:
		// bare path defaults to sqlite
		return sq.New(d)
	}
}
