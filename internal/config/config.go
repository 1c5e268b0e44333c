package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "strings"  // strings splits list-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env              string // application environment (e.g. "dev", "prod")
    Port             string // HTTP port to listen on
    DBUser           string // database username
    DBPass           string // database password (optional)
    DBHost           string // database host address
    DBPort           string // database port number
    DBName           string // database name
    JWTSecret        string // secret used to sign JWTs
    EmailTokenTTLMin int    // TTL in minutes for registration/reset tokens
    SessionTTLHours  int    // TTL in hours for session tokens
    BcryptCost       int    // bcrypt cost for password hashing
    OTPTTLSec        int    // OTP lifetime (and resend cooldown) in seconds

    SMTPHost string // SMTP server host (empty disables outgoing mail)
    SMTPPort string // SMTP server port
    SMTPUser string // SMTP auth username
    SMTPPass string // SMTP auth password
    SMTPFrom string // From address on outgoing mail

    FCMKey      string // server key for the push gateway (empty disables push)
    FCMEndpoint string // push gateway URL

    UploadDir     string   // directory for uploaded profile images
    PublicBaseURL string   // base URL prefixed to stored image paths
    AdminEmails   []string // emails seeded as admin accounts at startup
    AdminPassword string   // initial password for seeded admins
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Optional integrations
// (SMTP, push) read plain Getenv and are disabled when unset.
func Load() Config {
    return Config{
        Env:              must("APP_ENV"),      // environment (dev/test/prod)
        Port:             must("APP_PORT"),     // port to bind the HTTP server
        DBUser:           must("DB_USER"),      // database user
        DBPass:           os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:           must("DB_HOST"),      // database host
        DBPort:           must("DB_PORT"),      // database port
        DBName:           must("DB_NAME"),      // database name
        JWTSecret:        must("JWT_SECRET"),   // secret used for signing JWTs
        EmailTokenTTLMin: envInt("EMAIL_TOKEN_TTL_MIN", 15),
        SessionTTLHours:  envInt("SESSION_TOKEN_TTL_HOURS", 24),
        BcryptCost:       mustInt("BCRYPT_COST"), // bcrypt cost factor
        OTPTTLSec:        envInt("OTP_TTL_SEC", 60),

        SMTPHost: os.Getenv("SMTP_HOST"),
        SMTPPort: envStr("SMTP_PORT", "587"),
        SMTPUser: os.Getenv("SMTP_USER"),
        SMTPPass: os.Getenv("SMTP_PASS"),
        SMTPFrom: os.Getenv("SMTP_FROM"),

        FCMKey:      os.Getenv("FCM_SERVER_KEY"),
        FCMEndpoint: envStr("FCM_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),

        UploadDir:     envStr("UPLOAD_DIR", "uploads"),
        PublicBaseURL: envStr("PUBLIC_BASE_URL", ""),
        AdminEmails:   splitList(os.Getenv("ADMIN_EMAILS")),
        AdminPassword: os.Getenv("ADMIN_PASSWORD"),
    }
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

// splitList parses a comma-separated environment value into a slice,
// trimming whitespace and dropping empty entries.
func splitList(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
