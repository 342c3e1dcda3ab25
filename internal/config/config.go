package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries every tunable the api binary reads from the environment
type Config struct {
	Env           string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	CORSOrigins   []string
	MaxFetchLimit int
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads configs/.env when present and assembles the Config with
// development defaults for anything unset
func Load() Config {
	_ = godotenv.Load("configs/.env")

	dbHost := env("DB_HOST", "localhost")
	dbPort := env("DB_PORT", "5432")
	dbUser := env("DB_USER", "postgres")
	dbPassword := env("DB_PASSWORD", "postgres")
	dbName := env("DB_NAME", "patientportal")
	dbSslMode := env("DB_SSLMODE", "disable")

	dsn := env("DATABASE_URL",
		"postgres://"+dbUser+":"+dbPassword+"@"+dbHost+":"+dbPort+"/"+dbName+"?sslmode="+dbSslMode)

	origins := []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		origins = []string{v}
	}

	return Config{
		Env:           env("APP_ENV", "dev"),
		Port:          env("PORT", "8080"),
		DatabaseURL:   dsn,
		JWTSecret:     env("JWT_SECRET", ""),
		CORSOrigins:   origins,
		MaxFetchLimit: 100,
	}
}
