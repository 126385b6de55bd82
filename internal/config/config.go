package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

// Configuration holds the project configuration
type Configuration struct {
	ServerPort   int          `mapstructure:"ServerPort" tip:"Port the management and oid4vp api listens on"`
	ExternalURL  string       `mapstructure:"ExternalUrl" tip:"Public base url of this verifier agent"`
	Database     Database     `mapstructure:"Database"`
	Cache        Cache        `mapstructure:"Cache"`
	Log          Log          `mapstructure:"Log"`
	Verification Verification `mapstructure:"Verification"`
	StatusList   StatusList   `mapstructure:"StatusList"`
	Webhook      Webhook      `mapstructure:"Webhook"`
	DidResolver  DidResolver  `mapstructure:"DidResolver"`
	Scheduler    Scheduler    `mapstructure:"Scheduler"`
}

// Database has the database configuration
// URL: The database connection string
type Database struct {
	URL string `mapstructure:"Url" tip:"The Datasource name locator"`
}

// Cache configuration. With an empty RedisUrl the verifier falls back to an
// in-process cache.
type Cache struct {
	RedisUrl string `mapstructure:"RedisUrl" tip:"The redis url to use as a status list cache"`
}

// Log holds runtime log configuration
//
// Level: The minimum log level to show on logs. Values can be
//
//	 -4: Debug
//		0: Info
//		4: Warning
//		8: Error
//
// Mode: Log mode is the format of the log. 1: JSON, 2: Text
type Log struct {
	Level int `mapstructure:"Level" tip:"Minimum level to log: (-4:Debug, 0:Info, 4:Warning, 8:Error)"`
	Mode  int `mapstructure:"Mode" tip:"Log format (1: JSON, 2:Structured text)"`
}

// Verification groups the options controlling how presentations are verified
type Verification struct {
	TTL                     time.Duration `mapstructure:"TTL" tip:"Lifetime of a verification request until it counts as expired"`
	AcceptedAlgorithms      []string      `mapstructure:"AcceptedAlgorithms" tip:"Allow-listed JWS signing algorithms for presented credentials"`
	ProofTimeWindow         time.Duration `mapstructure:"ProofTimeWindow" tip:"Acceptable clock skew window for holder key binding proofs"`
	DataClearInterval       time.Duration `mapstructure:"DataClearInterval" tip:"Interval between sweeps deleting expired verification requests"`
	JWTSecuredAuthzRequests bool          `mapstructure:"JWTSecuredAuthzRequests" tip:"Default for the request object signing flag on new verifications"`
}

// StatusList groups the status list resolver options
type StatusList struct {
	AcceptedHosts  []string      `mapstructure:"AcceptedHosts" tip:"Host allow-list for status list URIs. Empty accepts any host"`
	CacheTTL       time.Duration `mapstructure:"CacheTTL" tip:"TTL for cached status list payloads. 0 disables caching"`
	MaxPayloadSize int64         `mapstructure:"MaxPayloadSize" tip:"Hard ceiling in bytes for a fetched or decompressed status list"`
}

// Webhook groups the callback dispatch options. An empty CallbackURL disables
// the whole outbox machinery.
type Webhook struct {
	CallbackURL      string        `mapstructure:"CallbackUrl" tip:"Endpoint notified whenever a verification reaches a terminal state"`
	APIKeyHeader     string        `mapstructure:"ApiKeyHeader" tip:"Optional static auth header name sent with each callback"`
	APIKeyValue      string        `mapstructure:"ApiKeyValue" tip:"Optional static auth header value sent with each callback"`
	CallbackInterval time.Duration `mapstructure:"CallbackInterval" tip:"Interval between callback dispatch cycles"`
}

// DidResolver points to the resolver used to load issuer public keys
type DidResolver struct {
	BaseURL string        `mapstructure:"BaseUrl" tip:"Base url of the universal resolver endpoint"`
	Timeout time.Duration `mapstructure:"Timeout" tip:"Timeout for a single did resolution"`
}

// Scheduler holds cluster lock tuning for the maintenance daemon
type Scheduler struct {
	LockAtMostFor time.Duration `mapstructure:"LockAtMostFor" tip:"Lease duration for the cluster wide job lock"`
}

// Load loads the configuration from a file (toml) and the environment
func Load(fileName string) (*Configuration, error) {
	bindEnv()
	pathFlag := viper.GetString("config")
	if _, err := os.Stat(pathFlag); err == nil {
		ext := filepath.Ext(pathFlag)
		if len(ext) > 1 {
			ext = ext[1:]
		}
		name := strings.Split(filepath.Base(pathFlag), ".")[0]
		viper.AddConfigPath(".")
		viper.SetConfigName(name)
		viper.SetConfigType(ext)
	} else {
		viper.AddConfigPath(getWorkingDirectory())
		viper.SetConfigType("toml")
		if fileName == "" {
			viper.SetConfigName("config")
		} else {
			viper.SetConfigName(fileName)
		}
	}

	config := &Configuration{
		ServerPort: defaultServerPort,
		Log: Log{
			Level: log.LevelDebug,
			Mode:  log.OutputText,
		},
		Verification: Verification{
			TTL:                     defaultVerificationTTL,
			AcceptedAlgorithms:      []string{"ES256"},
			ProofTimeWindow:         defaultProofTimeWindow,
			DataClearInterval:       defaultDataClearInterval,
			JWTSecuredAuthzRequests: true,
		},
		StatusList: StatusList{
			CacheTTL:       defaultStatusListCacheTTL,
			MaxPayloadSize: defaultStatusListMaxSize,
		},
		Webhook: Webhook{
			CallbackInterval: defaultCallbackInterval,
		},
		DidResolver: DidResolver{
			Timeout: defaultDidResolverTimeout,
		},
		Scheduler: Scheduler{
			LockAtMostFor: defaultLockAtMostFor,
		},
	}

	ctx := context.Background()
	if err := viper.ReadInConfig(); err != nil {
		log.Info(ctx, "no config file found, relying on environment", "err", err)
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	return config, nil
}

// Sanitize validates that the configuration holds everything the servers need
// to start.
func (c *Configuration) Sanitize() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Verification.TTL <= 0 {
		return fmt.Errorf("verification ttl must be positive")
	}
	if c.StatusList.MaxPayloadSize <= 0 {
		return fmt.Errorf("status list max payload size must be positive")
	}
	if len(c.Verification.AcceptedAlgorithms) == 0 {
		return fmt.Errorf("at least one accepted signing algorithm is required")
	}
	return nil
}

const (
	defaultServerPort         = 8080
	defaultVerificationTTL    = 15 * time.Minute
	defaultProofTimeWindow    = 2 * time.Minute
	defaultDataClearInterval  = 10 * time.Minute
	defaultStatusListCacheTTL = 5 * time.Minute
	defaultStatusListMaxSize  = int64(10 * 1024 * 1024)
	defaultCallbackInterval   = 10 * time.Second
	defaultDidResolverTimeout = 10 * time.Second
	defaultLockAtMostFor      = 5 * time.Minute
)

func bindEnv() {
	viper.SetEnvPrefix("VERIFIER")
	_ = viper.BindEnv("ServerPort", "VERIFIER_SERVER_PORT")
	_ = viper.BindEnv("ExternalUrl", "VERIFIER_EXTERNAL_URL")

	_ = viper.BindEnv("Database.Url", "VERIFIER_DATABASE_URL")
	_ = viper.BindEnv("Cache.RedisUrl", "VERIFIER_CACHE_REDIS_URL")

	_ = viper.BindEnv("Log.Level", "VERIFIER_LOG_LEVEL")
	_ = viper.BindEnv("Log.Mode", "VERIFIER_LOG_MODE")

	_ = viper.BindEnv("Verification.TTL", "VERIFIER_VERIFICATION_TTL")
	_ = viper.BindEnv("Verification.AcceptedAlgorithms", "VERIFIER_ACCEPTED_ALGORITHMS")
	_ = viper.BindEnv("Verification.ProofTimeWindow", "VERIFIER_PROOF_TIME_WINDOW")
	_ = viper.BindEnv("Verification.DataClearInterval", "VERIFIER_DATA_CLEAR_INTERVAL")
	_ = viper.BindEnv("Verification.JWTSecuredAuthzRequests", "VERIFIER_JWT_SECURED_AUTHZ_REQUESTS")

	_ = viper.BindEnv("StatusList.AcceptedHosts", "VERIFIER_STATUS_LIST_ACCEPTED_HOSTS")
	_ = viper.BindEnv("StatusList.CacheTTL", "VERIFIER_STATUS_LIST_CACHE_TTL")
	_ = viper.BindEnv("StatusList.MaxPayloadSize", "VERIFIER_STATUS_LIST_MAX_PAYLOAD_SIZE")

	_ = viper.BindEnv("Webhook.CallbackUrl", "VERIFIER_WEBHOOK_CALLBACK_URL")
	_ = viper.BindEnv("Webhook.ApiKeyHeader", "VERIFIER_WEBHOOK_API_KEY_HEADER")
	_ = viper.BindEnv("Webhook.ApiKeyValue", "VERIFIER_WEBHOOK_API_KEY_VALUE")
	_ = viper.BindEnv("Webhook.CallbackInterval", "VERIFIER_WEBHOOK_CALLBACK_INTERVAL")

	_ = viper.BindEnv("DidResolver.BaseUrl", "VERIFIER_DID_RESOLVER_BASE_URL")
	_ = viper.BindEnv("DidResolver.Timeout", "VERIFIER_DID_RESOLVER_TIMEOUT")

	_ = viper.BindEnv("Scheduler.LockAtMostFor", "VERIFIER_SCHEDULER_LOCK_AT_MOST_FOR")

	viper.AutomaticEnv()
}

func getWorkingDirectory() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
