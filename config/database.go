package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var db *gorm.DB

func GetDB() *gorm.DB {
	return db
}

// SetDB overrides the global DB handle. Intended for integration tests only.
func SetDB(d *gorm.DB) {
	db = d
}

func init() {
	godotenv.Load()
	// Never connect here: Cloud Run needs the container listening on $PORT
	// before slow dependencies come up. main() calls the connector.
}

// garageDSN builds the MySQL DSN from env. DB_HOST values under /cloudsql/
// switch to the Unix socket the Cloud SQL Auth Proxy mounts.
func garageDSN() string {
	host := os.Getenv("DB_HOST")
	network, address := "tcp", fmt.Sprintf("%s:%s", host, os.Getenv("DB_PORT"))
	if strings.HasPrefix(host, "/cloudsql/") {
		network, address = "unix", host
	}
	return fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), network, address, os.Getenv("DB_NAME"))
}

// ConnectDatabaseWithRetry connects with exponential backoff and sets the
// global handle. Blocks until a connection succeeds; call it from main()
// after the HTTP listener is up.
func ConnectDatabaseWithRetry() {
	dsn := garageDSN()

	for attempt := 1; ; attempt++ {
		conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger:         newGormLogger(),
			NamingStrategy: &schema.NamingStrategy{SingularTable: false},
		})
		if err == nil {
			tunePool(conn)
			if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
				log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
			}
			if pluginErr := conn.Use(NewTenantGuardPlugin()); pluginErr != nil {
				log.Printf("db connected but failed to install tenant guard plugin: %v", pluginErr)
			}
			db = conn
			log.Printf("connected to database (attempt=%d)", attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// tunePool sizes the database/sql pool for Cloud SQL. Row-locked reversal
// transactions hold connections briefly, so the defaults lean modest.
func tunePool(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil || sqlDB == nil {
		return
	}
	sqlDB.SetMaxOpenConns(intFromEnv("DB_MAX_OPEN_CONNS", 50))
	sqlDB.SetMaxIdleConns(intFromEnv("DB_MAX_IDLE_CONNS", 25))
	sqlDB.SetConnMaxLifetime(time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second)
}

func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
