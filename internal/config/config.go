// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port        string
	RedisURL    string // empty disables the action log
	DatabaseURL string // empty falls back to score files
	JWTSecret   string
	LogLevel    string
	LogJSON     bool
	ScoresDir   string

	BoardSize     int
	Rounds        int
	BombPenalty   int
	TurnTimeout   time.Duration
	SignupTimeout time.Duration
	NarrationPace float64
	WorkerPool    int
}

// Load reads a .env file when present, then the environment.
func Load(files ...string) Config {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		log.Warnf("config: could not read env file: %v", err)
	}
	return Config{
		Port:          getEnv("PORT", "8080"),
		RedisURL:      getEnv("REDIS_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogJSON:       getBool("LOG_JSON", false),
		ScoresDir:     getEnv("SCORES_DIR", "scores"),
		BoardSize:     getInt("BOARD_SIZE", 15),
		Rounds:        getInt("ROUNDS", 1),
		BombPenalty:   getInt("BOMB_PENALTY", 250_000),
		TurnTimeout:   getDuration("TURN_TIMEOUT", 60*time.Second),
		SignupTimeout: getDuration("SIGNUP_TIMEOUT", 5*time.Minute),
		NarrationPace: getFloat("NARRATION_PACE", 1),
		WorkerPool:    getInt("WORKER_POOL", 64),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("config: %s=%q is not an integer, using %d", key, v, def)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warnf("config: %s=%q is not a number, using %v", key, v, def)
		return def
	}
	return f
}

func getBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnf("config: %s=%q is not a boolean, using %v", key, v, def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("config: %s=%q is not a duration, using %v", key, v, def)
		return def
	}
	return d
}
