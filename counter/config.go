package counter

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

// Config for Service.
type Config struct {
	// Database file to save the counter state. Persistence is disabled if empty.
	Database string `yaml:"database"`
	// Value of a new counter. Ignored if the database already has a state.
	InitialValue int64 `yaml:"initial-value"`
	// What to do when a mutation leaves the int64 range: "fail", "wrap" or "saturate".
	Overflow string `yaml:"overflow"`
	// Mutations allowed per second. Zero disables rate limiting.
	MaxMutationsPerSecond float64 `yaml:"max-mutations-per-second"`
	// Burst size of the mutation rate limiter. Defaults to 1 when rate limiting is enabled.
	MutationBurst int64 `yaml:"mutation-burst"`
	// Max time a mutation waits for the rate limiter before failing.
	RateLimitWait time.Duration `yaml:"rate-limit-wait"`

	// Enable RPC server
	RPCEnabled bool `yaml:"rpc-enabled"`
	// Host to listen for RPC server
	RPCHost string `yaml:"rpc-host"`
	// Listen port for RPC server
	RPCPort int `yaml:"rpc-port"`
	// Time to wait for ongoing requests before shutting down RPC HTTP server.
	RPCShutdownTimeout time.Duration `yaml:"rpc-shutdown-timeout"`

	// Write logs into this file instead of stderr. Rotated by size.
	LogFile string `yaml:"log-file"`
	// Rotate log file after this many megabytes.
	LogFileMaxSize int `yaml:"log-file-max-size"`
	// Number of rotated log files to keep.
	LogFileMaxBackups int `yaml:"log-file-max-backups"`
	// Days to keep rotated log files.
	LogFileMaxAge int `yaml:"log-file-max-age"`
}

// DefaultConfig for Service. Do not pass zero value Config to New.
// Copy this struct and modify instead.
var DefaultConfig = Config{
	Database:           "~/.counter/counter.db",
	Overflow:           "fail",
	RateLimitWait:      time.Second,
	RPCEnabled:         true,
	RPCHost:            "127.0.0.1",
	RPCPort:            7246,
	RPCShutdownTimeout: 5 * time.Second,
	LogFileMaxSize:     100,
	LogFileMaxBackups:  3,
	LogFileMaxAge:      28,
}

// LoadConfig reads the YAML file at filename over DefaultConfig.
// A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	c := DefaultConfig
	filename, err := homedir.Expand(filename)
	if err != nil {
		return nil, err
	}
	b, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.UnmarshalStrict(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
