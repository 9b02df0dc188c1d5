package conn

// Drivers for the dialects that ship with a pure Go driver. Oracle drivers
// need cgo and are registered by the application.
import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)
