package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds everything the server and CLI read from the environment.
type Config struct {
	Port string

	DBDriver   string
	DBURL      string
	DBUser     string
	DBPass     string
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string

	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool

	UploadDir     string
	ClientOrigins []string

	LoanDays       int
	ExtendDays     int
	NotifyInterval time.Duration
}

// Load reads the configuration from the environment, falling back to
// development defaults for anything unset.
func Load() Config {
	driver := getenv("DB_DRIVER", DriverMySQL)

	defaultPort := "3306"
	defaultUser := "root"
	if driver == DriverPostgres {
		defaultPort = "5432"
		defaultUser = "postgres"
	}

	return Config{
		Port: getenv("PORT", "8080"),

		DBDriver:   driver,
		DBURL:      os.Getenv("DB_URL"),
		DBUser:     getenv("DB_USER", defaultUser),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", defaultPort),
		DBName:     getenv("DB_NAME", "simpus"),
		SQLitePath: getenv("SQLITE_PATH", "data/simpus.db"),

		JWTSecret:    getenv("JWT_SECRET", "dev_secret_change_me"),
		TokenTTL:     getDuration("TOKEN_TTL", 7*24*time.Hour),
		CookieSecure: getBool("COOKIE_SECURE", false),

		UploadDir:     getenv("UPLOAD_DIR", "uploads"),
		ClientOrigins: splitList(os.Getenv("CLIENT_ORIGINS")),

		LoanDays:       getInt("LOAN_DAYS", 14),
		ExtendDays:     getInt("EXTEND_DAYS", 7),
		NotifyInterval: getDuration("NOTIFY_INTERVAL", 24*time.Hour),
	}
}

// DSN returns the data source name for the configured driver. DB_URL wins
// over the individual parts.
func (c Config) DSN() (string, error) {
	if c.DBURL != "" {
		return c.DBURL, nil
	}

	switch c.DBDriver {
	case DriverMySQL:
		// user:password@tcp(host:port)/dbname?parseTime=true; clientFoundRows agar
		// RowsAffected menghitung baris yang cocok, bukan yang berubah.
		return c.DBUser + ":" + c.DBPass + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&loc=UTC&clientFoundRows=true", nil
	case DriverPostgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName), nil
	case DriverSQLite:
		return c.SQLitePath, nil
	}
	return "", fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
