// Package config loads the foo controller configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	BackendKubernetes = "kubernetes"
	BackendMySQL      = "mysql"
	BackendMemory     = "memory"
	BackendHTTP       = "http"

	TransportGoChannel = "gochannel"
	TransportSQL       = "sql"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

var (
	backends   = []string{BackendKubernetes, BackendMySQL, BackendMemory, BackendHTTP}
	transports = []string{TransportGoChannel, TransportSQL}
	logFormats = []string{LogFormatText, LogFormatJSON}
)

type Config struct {
	// Backend is where Foo objects live.
	Backend    string `yaml:"backend"`
	Kubeconfig string `yaml:"kubeconfig"`
	// Namespace limits the watched Foos, empty means all namespaces.
	Namespace string      `yaml:"namespace"`
	MySQL     MySQLConfig `yaml:"mysql"`
	// APIServer is the base url of a foo-controller resource API, used by the
	// http backend and the foo commands.
	APIServer string `yaml:"apiServer"`
	// Listen is the address of the status, metrics and resource API server.
	Listen  string `yaml:"listen"`
	Workers int    `yaml:"workers"`
	// ResyncInterval is how often every Foo is listed again.
	ResyncInterval time.Duration `yaml:"resyncInterval"`
	// RetryInterval is how long a failed reconcile waits for the next attempt.
	RetryInterval time.Duration `yaml:"retryInterval"`
	Log           LogConfig     `yaml:"log"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
	// WatchTransport carries the store events, "gochannel" keeps them in
	// process, "sql" persists them so that writers in other processes are seen.
	WatchTransport string        `yaml:"watchTransport"`
	StreamName     string        `yaml:"streamName"`
	ConsumerGroup  string        `yaml:"consumerGroup"`
	PollInterval   time.Duration `yaml:"pollInterval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Backend:        BackendKubernetes,
		Listen:         ":8080",
		Workers:        4,
		ResyncInterval: 5 * time.Minute,
		RetryInterval:  360 * time.Second,
		MySQL: MySQLConfig{
			WatchTransport: TransportGoChannel,
			StreamName:     "foos",
			PollInterval:   time.Second,
		},
		Log: LogConfig{
			Level:  logrus.InfoLevel.String(),
			Format: LogFormatText,
		},
	}
}

// Load reads the yaml file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

func oneOf(name, value string, allowed []string) error {
	if !lo.Contains(allowed, value) {
		return fmt.Errorf("invalid %s %q, must be one of %v", name, value, allowed)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := oneOf("backend", c.Backend, backends); err != nil {
		return err
	}
	if err := oneOf("log format", c.Log.Format, logFormats); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.ResyncInterval <= 0 || c.RetryInterval <= 0 {
		return fmt.Errorf("the resync and retry intervals must be positive")
	}
	switch c.Backend {
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("mysql.dsn is required by the mysql backend")
		}
		if err := oneOf("watch transport", c.MySQL.WatchTransport, transports); err != nil {
			return err
		}
		if c.MySQL.WatchTransport == TransportSQL && c.MySQL.StreamName == "" {
			return fmt.Errorf("mysql.streamName is required by the sql watch transport")
		}
	case BackendHTTP:
		if c.APIServer == "" {
			return fmt.Errorf("apiServer is required by the http backend")
		}
	}
	return nil
}

// NewLogger builds the logrus logger described by c.
func (c LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	if c.Format == LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
