package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	UserSecretKey    = "USER_SECRET"
	AdminSecretKey   = "ADMIN_SECRET"
	EventsRedisURL   = "EVENTS_REDIS_URL"
	EventsRedisPass  = "EVENTS_REDIS_PASS"
	WebUrl           = "WEB_URL"
	ListenAddr       = "LISTEN_ADDR"
	LogLevel         = "LOG_LEVEL"
	LogFormat        = "LOG_FORMAT"
	QueueSize        = "QUEUE_SIZE"
	QueueWorkers     = "QUEUE_WORKERS"
	ClientTimeout    = "CLIENT_TIMEOUT"
	Storage          = "CONTACTS_STORAGE"
)

// ServerRequired lists the variables the API and websocket servers refuse to start without.
var ServerRequired = []string{
	AWSRegion,
	UserSecretKey,
	EventsRedisURL,
}

// Load reads a .env file from the working directory when one exists.
// Variables already present in the environment win.
func Load() {
	_ = godotenv.Load()
}

// Require returns an error naming every key in keys that is unset.
func Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("env: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func GetInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func GetDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
