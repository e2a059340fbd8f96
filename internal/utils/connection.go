package utils

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ConnectionConfig holds database connection parameters
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	AppName  string
}

// DefaultConnectionConfig returns a default connection configuration
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Host:    "localhost",
		Port:    5432,
		SSLMode: "prefer",
	}
}

// BuildDSN constructs a PostgreSQL connection string from connection parameters
func BuildDSN(config *ConnectionConfig) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("host=%s", config.Host))
	parts = append(parts, fmt.Sprintf("port=%d", config.Port))
	parts = append(parts, fmt.Sprintf("dbname=%s", config.Database))
	parts = append(parts, fmt.Sprintf("user=%s", config.User))

	if config.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", config.Password))
	}

	if config.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", config.SSLMode))
	}

	if config.AppName != "" {
		parts = append(parts, fmt.Sprintf("application_name=%s", config.AppName))
	}

	return strings.Join(parts, " ")
}

// Connect establishes a database connection using the provided configuration
// and verifies it with a ping.
func Connect(ctx context.Context, config *ConnectionConfig) (*sql.DB, error) {
	return ConnectWithDSN(ctx, BuildDSN(config))
}

// ConnectWithDSN establishes a database connection using a DSN string
// and verifies it with a ping.
func ConnectWithDSN(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}
