package config

import (
	"os"
	"strconv"
)

type Config struct {
	DB       *DBconfig
	Redis    *Redisconfig
	RabbitMq *RabbitMqconfig
	Srv      *Serviceconfig
	Match    *Matchconfig
	App      *Appconfig
	Log      *Loggerconfig
}

type DBconfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type Redisconfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type RabbitMqconfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type Serviceconfig struct {
	DispatchServicePort string
}

// Matchconfig tunes candidate selection. Index is "scan", "rtree" or "redis" and
// picks the registry that backs nearby-driver search. PendingTTLSeconds expires
// unaccepted rides; zero disables expiry.
type Matchconfig struct {
	SearchRadiusKm    float64
	Limit             int
	OfferCount        int
	Index             string
	PendingTTLSeconds int
}

type Appconfig struct {
	PublicJwtSecret string
}

type Loggerconfig struct {
	Level string
}

func New() (*Config, error) {
	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return def
		}
		return val
	}

	getEnvFloat := func(key string, def float64) float64 {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return def
		}
		return val
	}

	cnf := &Config{
		DB: &DBconfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "dispatch_user"),
			Password: getEnv("DB_PASSWORD", "dispatch_pass"),
			Database: getEnv("DB_NAME", "dispatch_db"),
		},
		Redis: &Redisconfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
		},
		Srv: &Serviceconfig{
			DispatchServicePort: getEnv("DISPATCH_SERVICE_PORT", "3000"),
		},
		Match: &Matchconfig{
			SearchRadiusKm:    getEnvFloat("MATCH_RADIUS_KM", 5),
			Limit:             getEnvInt("MATCH_LIMIT", 50),
			OfferCount:        getEnvInt("MATCH_OFFER_COUNT", 5),
			Index:             getEnv("MATCH_INDEX", "scan"),
			PendingTTLSeconds: getEnvInt("RIDE_PENDING_TTL", 0),
		},
		App: &Appconfig{
			PublicJwtSecret: getEnv("JWT_SECRET", "dev-secret"),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}

	return cnf, nil
}
