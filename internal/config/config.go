package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string // uploaded question workbooks
	SiteID       string // stamped on outbox events

	AuthSecret      string
	TokenTTL        time.Duration
	EnableLocalAuth bool

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Assessment shape
	Sections          []string
	PerSection        int
	DurationSec       int
	MaxSubmitAttempts int // 0 = unlimited

	SessionRetention    time.Duration
	SessionAbandon      time.Duration
	SessionReapEvery    time.Duration
	StorePersistTimeout time.Duration
}

// Load reads a .env file if one exists, then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		BlobBasePath:       envOr("BLOB_BASE_PATH", "./data"),
		SiteID:             envOr("SITE_ID", "local"),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TokenTTL:           envDuration("TOKEN_TTL", 8*time.Hour),
		EnableLocalAuth:    envBool("ENABLE_LOCAL_AUTH", true),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://assess.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),

		Sections:          csvOr("ASSESSMENT_SECTIONS", "aptitude,product_knowledge,kra_knowledge"),
		PerSection:        envInt("QUESTIONS_PER_SECTION", 10),
		DurationSec:       envInt("ASSESSMENT_DURATION_SEC", 30*60),
		MaxSubmitAttempts: envInt("MAX_SUBMIT_ATTEMPTS", 5),

		SessionRetention:    envDuration("SESSION_RETENTION", 15*time.Minute),
		SessionAbandon:      envDuration("SESSION_ABANDON_AFTER", 24*time.Hour),
		SessionReapEvery:    envDuration("SESSION_REAP_INTERVAL", time.Minute),
		StorePersistTimeout: envDuration("STORE_PERSIST_TIMEOUT", 10*time.Second),
	}
}

// CORSOrigins picks the origin list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
