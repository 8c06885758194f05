package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable process-wide configuration snapshot. Values come
// from HIASCDI_* environment variables with an optional hiascdi.yaml file
// underneath; environment wins.
type Config struct {
	Addr              string
	APIVersion        string
	MongoURL          string
	MongoDatabase     string
	ContentTypes      []string
	Collections       map[string]string
	TelemetryInterval time.Duration
}

// Load builds a Config so main stays lean.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HIASCDI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("api.version", "v1")
	v.SetDefault("mongo.url", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "hiascdi")
	v.SetDefault("content.types", []string{"application/json", "text/plain"})
	v.SetDefault("telemetry.interval", 5*time.Minute)

	v.SetConfigName("hiascdi")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/hiascdi")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	cfg := Config{
		Addr:              v.GetString("addr"),
		APIVersion:        v.GetString("api.version"),
		MongoURL:          v.GetString("mongo.url"),
		MongoDatabase:     v.GetString("mongo.database"),
		ContentTypes:      v.GetStringSlice("content.types"),
		Collections:       v.GetStringMapString("collections"),
		TelemetryInterval: v.GetDuration("telemetry.interval"),
	}
	if len(cfg.Collections) == 0 {
		cfg.Collections = DefaultCollections()
	}
	return cfg, nil
}

// DefaultCollections maps entity types to their backing collections. Types
// not listed here are unknown to the broker; entity creation falls back to
// the generic Thing type.
func DefaultCollections() map[string]string {
	return map[string]string{
		"Agent":       "Entities",
		"Application": "Entities",
		"Device":      "Entities",
		"HIASCDI":     "Entities",
		"HIASHDI":     "Entities",
		"Location":    "Entities",
		"Model":       "Entities",
		"Patient":     "Entities",
		"Robotics":    "Entities",
		"Staff":       "Entities",
		"Thing":       "Entities",
		"Zone":        "Entities",
	}
}
