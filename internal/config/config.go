package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBDriver     string // "mysql" (default) or "sqlite3"
    DBUser       string // database username (mysql)
    DBPass       string // database password (optional)
    DBHost       string // database host address (mysql)
    DBPort       string // database port number (mysql)
    DBName       string // database name (mysql)
    DBPath       string // database file path (sqlite3)
    JWTSecret    string // secret used to sign device tokens
    DeviceTTLMin int    // device token time-to-live in minutes
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The MySQL settings
// are only required when DB_DRIVER is not "sqlite3".
func Load() Config {
    cfg := Config{
        Env:          must("APP_ENV"),                 // environment (dev/test/prod)
        Port:         must("APP_PORT"),                // port to bind the HTTP server
        DBDriver:     getenv("DB_DRIVER", "mysql"),    // database driver
        JWTSecret:    must("JWT_SECRET"),              // secret used for signing device tokens
        DeviceTTLMin: mustInt("DEVICE_TOKEN_TTL_MIN"), // TTL for device tokens in minutes
    }
    if cfg.DBDriver == "sqlite3" {
        cfg.DBPath = getenv("DB_PATH", "pickqueue.db")
        return cfg
    }
    cfg.DBUser = must("DB_USER")      // database user
    cfg.DBPass = os.Getenv("DB_PASS") // database password (empty allowed)
    cfg.DBHost = must("DB_HOST")      // database host
    cfg.DBPort = must("DB_PORT")      // database port
    cfg.DBName = must("DB_NAME")      // database name
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
