package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Platzhalter, wenn der Datensatz nichts Brauchbares liefert
	FoodTypeDefault        string `envconfig:"FOOD_TYPE_DEFAULT" default:"Local Cuisine"`
	DescriptionPlaceholder string `envconfig:"DESCRIPTION_PLACEHOLDER" default:"Join us for a great dining experience!"`
	RatingPlaceholder      string `envconfig:"RATING_PLACEHOLDER" default:"Not specified"`

	LooseKeyMatch bool `envconfig:"LOOSE_KEY_MATCH" default:"true"`

	// Field-Map-Quelle, Vorrang: FIELD_MAP_FILE, FIELD_MAP_URL, S3-Objekt
	FieldMapFile           string `envconfig:"FIELD_MAP_FILE"`
	FieldMapURL            string `envconfig:"FIELD_MAP_URL"`
	FieldMapS3URL          string `envconfig:"FIELD_MAP_S3_URL"`
	FieldMapS3Region       string `envconfig:"FIELD_MAP_S3_REGION" default:"us-east-1"`
	FieldMapS3Key          string `envconfig:"FIELD_MAP_S3_ACCESS_KEY"`
	FieldMapS3Secret       string `envconfig:"FIELD_MAP_S3_SECRET"`
	FieldMapS3Bucket       string `envconfig:"FIELD_MAP_S3_BUCKET"`
	FieldMapS3Object       string `envconfig:"FIELD_MAP_S3_OBJECT" default:"field-map.yaml"`
	FieldMapReloadSchedule string `envconfig:"FIELD_MAP_RELOAD_SCHEDULE" default:"*/15 * * * *"`
}

// FieldMapFromS3 gibt an, ob die Field-Map aus einem S3-Bucket geladen wird.
func (c *Config) FieldMapFromS3() bool {
	return c.FieldMapFile == "" && c.FieldMapURL == "" && c.FieldMapS3Bucket != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen (optional über eine .env-Datei).
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
