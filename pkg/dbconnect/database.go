package dbconnect

import "database/sql"

// Database abstracts a lazily established SQL connection.
type Database interface {
	Connect() (*sql.DB, error)
	Ping() error
}
