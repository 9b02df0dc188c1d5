package conn

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoobzio/lockql"
	"github.com/zoobzio/lockql/internal/render"
	"github.com/zoobzio/lockql/mssql"
	"github.com/zoobzio/lockql/mysql"
	"github.com/zoobzio/lockql/oracle"
	"github.com/zoobzio/lockql/postgres"
	"github.com/zoobzio/lockql/sqlite"
)

// Version probes per dialect.
const (
	postgresVersionQuery = "SHOW server_version"
	mysqlVersionQuery    = "SELECT VERSION()"
	mysqlEngineQuery     = "SELECT ENGINE FROM INFORMATION_SCHEMA.ENGINES WHERE SUPPORT = 'DEFAULT'"
	sqliteVersionQuery   = "SELECT sqlite_version()"
	mssqlVersionQuery    = "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))"
	oracleVersionQuery   = "SELECT version FROM product_component_version WHERE ROWNUM = 1"
)

// DialectForDriver maps a database/sql driver name to a dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return postgres.Name, nil
	case "mysql", "mariadb":
		return mysql.Name, nil
	case "sqlite", "sqlite3":
		return sqlite.Name, nil
	case "sqlserver", "mssql":
		return mssql.Name, nil
	case "oracle", "godror", "oci8":
		return oracle.Name, nil
	default:
		return "", fmt.Errorf("unknown driver %q: use WithDialect", driver)
	}
}

// probe asks the server for its version and, for MySQL, its default
// storage engine. Only the version query is fatal.
func (d *DB) probe(ctx context.Context) (render.ServerInfo, error) {
	d.probes++
	info := render.ServerInfo{Dialect: d.dialect}

	var query string
	switch d.dialect {
	case postgres.Name:
		query = postgresVersionQuery
	case mysql.Name:
		query = mysqlVersionQuery
	case sqlite.Name:
		query = sqliteVersionQuery
	case mssql.Name:
		query = mssqlVersionQuery
	case oracle.Name:
		query = oracleVersionQuery
	default:
		return info, fmt.Errorf("unsupported dialect: %s", d.dialect)
	}

	var raw string
	if err := d.db.GetContext(ctx, &raw, query); err != nil {
		return info, fmt.Errorf("probing %s server version: %w", d.dialect, err)
	}
	v, err := render.ParseVersion(raw)
	if err != nil {
		return info, fmt.Errorf("probing %s server version: %w", d.dialect, err)
	}
	info.Version = v

	if d.dialect == mysql.Name {
		if strings.Contains(strings.ToLower(raw), mysql.VariantMariaDB) {
			info.Variant = mysql.VariantMariaDB
		}
		var engine string
		if err := d.db.GetContext(ctx, &engine, mysqlEngineQuery); err != nil {
			d.log.WithError(err).Warnf("storage engine probe failed, assuming %s", mysql.DefaultStorageEngine)
			engine = mysql.DefaultStorageEngine
		}
		info.StorageEngine = engine
	}

	d.log.WithField("raw_version", raw).Debug("probed server")
	return info, nil
}

// newRenderer builds the dialect renderer for a server. Pinned capabilities
// replace the computed ones.
func newRenderer(info render.ServerInfo, caps *render.Capabilities) (lockql.Renderer, error) {
	switch info.Dialect {
	case postgres.Name:
		if caps != nil {
			return postgres.NewWithCapabilities(*caps), nil
		}
		return postgres.NewForServer(info), nil
	case mysql.Name:
		if caps != nil {
			return mysql.NewWithCapabilities(*caps), nil
		}
		return mysql.NewForServer(info), nil
	case sqlite.Name:
		if caps != nil {
			return sqlite.NewWithCapabilities(*caps), nil
		}
		return sqlite.NewForServer(info), nil
	case mssql.Name:
		if caps != nil {
			return mssql.NewWithCapabilities(*caps), nil
		}
		return mssql.NewForServer(info), nil
	case oracle.Name:
		if caps != nil {
			return oracle.NewWithCapabilities(*caps), nil
		}
		return oracle.NewForServer(info), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", info.Dialect)
	}
}
