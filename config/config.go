package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUser  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`

	// DefaultGeocodeProvider selects the geocoding provider used when a
	// request does not name one. GoogleMapsAPIKey enables the paid provider.
	DefaultGeocodeProvider string `json:"default_geocode_provider"`
	GoogleMapsAPIKey       string `json:"-"`

	SeedSampleData bool `json:"seed_sample_data"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// A missing .env file is fine; deployments may set env vars directly.
		if err := godotenv.Load(); err != nil && os.Getenv("APPENV") == "" {
			log.Printf("no .env file loaded: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)

		provider := os.Getenv("GEOCODE_PROVIDER")
		if provider == "" {
			provider = "nominatim"
		}

		config = &Config{
			AppName:                os.Getenv("APPNAME"),
			AppEnv:                 os.Getenv("APPENV"),
			AppPort:                uint16(appPort),
			GinMode:                os.Getenv("GINMODE"),
			DBHost:                 os.Getenv("DBHOST"),
			DBPort:                 uint16(dbPort),
			DBName:                 os.Getenv("DBNAME"),
			DBUser:                 os.Getenv("DBUSER"),
			DBPass:                 os.Getenv("DBPASS"),
			DefaultGeocodeProvider: provider,
			GoogleMapsAPIKey:       os.Getenv("GOOGLE_MAPS_API_KEY"),
			SeedSampleData:         os.Getenv("SEED_SAMPLE_DATA") == "true",
		}
	})
	return config
}

// ResetConfigForTest clears the singleton so tests can reload it with fresh env vars.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}

// ConnectMySQL establishes a connection to the application database.
// Under APPENV=test it opens an isolated in-memory SQLite database instead,
// so tests never need a running MySQL server.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()

	if cfg.AppEnv == "test" || os.Getenv("APPENV") == "test" {
		dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
