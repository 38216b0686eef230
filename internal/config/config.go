package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries connection settings and the game tunables. Every scoring,
// timing, and question-count constant lives here rather than in the game code.
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	Port          string
	JWTSecret     string

	QuestionsPerGame      int
	AnswerTimeLimit       time.Duration
	PointsPerCorrect      int
	ResultGrace           time.Duration
	PreserveStateOnRejoin bool
}

// Load reads configuration from the environment with defaults.
func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "guessflag"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Port:          getEnv("PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),

		QuestionsPerGame:      getEnvInt("QUESTIONS_PER_GAME", 10),
		AnswerTimeLimit:       getEnvDuration("ANSWER_TIME_LIMIT", 15*time.Second),
		PointsPerCorrect:      getEnvInt("POINTS_PER_CORRECT", 1),
		ResultGrace:           getEnvDuration("RESULT_GRACE", 2*time.Second),
		PreserveStateOnRejoin: getEnvBool("PRESERVE_STATE_ON_REJOIN", true),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
