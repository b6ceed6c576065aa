// Package config loads the chaincode process settings.
//
// Values come from an optional YAML file named by IDLEDGER_CONFIG_FILE, then
// from IDLEDGER_* environment variables, which take precedence. Anything
// still unset falls back to the defaults below.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "IDLEDGER"
	// FileEnvVar names the optional YAML config file.
	FileEnvVar = "IDLEDGER_CONFIG_FILE"

	defaultLogSpec = "info"
)

// Config represents the chaincode process configuration
type Config struct {
	// ChaincodeID is the package id the peer knows the external service by.
	ChaincodeID string `yaml:"chaincode_id" envconfig:"CHAINCODE_ID" validate:"required_with=ServerAddress"`
	// ServerAddress switches to chaincode-as-a-service mode when set.
	ServerAddress string    `yaml:"server_address" envconfig:"CHAINCODE_SERVER_ADDRESS" validate:"omitempty,hostname_port"`
	TLS           TLSConfig `yaml:"tls" envconfig:"TLS"`
	// LogSpec is a flogging spec such as "info" or "identityledger.assetmanager=debug:info".
	LogSpec string `yaml:"log_spec" envconfig:"LOG_SPEC" validate:"logspec"`
	// WithdrawAuthority pins the client identity AssetManager:InitLedger accepts.
	// Empty lets the first caller claim it.
	WithdrawAuthority string `yaml:"withdraw_authority" envconfig:"WITHDRAW_AUTHORITY"`
}

// TLSConfig contains the server-side TLS material for chaincode-as-a-service
type TLSConfig struct {
	Enabled          bool   `yaml:"enabled" envconfig:"ENABLED"`
	KeyFile          string `yaml:"key_file" envconfig:"KEY_FILE" validate:"required_if=Enabled true"`
	CertFile         string `yaml:"cert_file" envconfig:"CERT_FILE" validate:"required_if=Enabled true"`
	ClientCACertFile string `yaml:"client_ca_cert_file" envconfig:"CLIENT_CA_CERT_FILE"`
}

// TLSMaterial holds the PEM bytes read from the files named in TLSConfig.
type TLSMaterial struct {
	Key          []byte
	Cert         []byte
	ClientCACert []byte
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("logspec", validLogSpec); err != nil {
		panic(err)
	}
	return v
}

// validLogSpec parses the spec into a throwaway level set, the same way
// flogging.ActivateSpec does, without touching the global loggers.
func validLogSpec(fl validator.FieldLevel) bool {
	var levels flogging.LoggerLevels
	return levels.ActivateSpec(fl.Field().String()) == nil
}

// Load loads configuration from the optional file and the environment
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// No envconfig defaults: unset variables must not clobber file values.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyDefaults() {
	if c.LogSpec == "" {
		c.LogSpec = defaultLogSpec
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// ExternalService reports whether the chaincode runs as a service the peer dials.
func (c *Config) ExternalService() bool {
	return c.ServerAddress != ""
}

// ReadTLSMaterial reads the configured TLS files. It returns nil when TLS is disabled.
func (c *Config) ReadTLSMaterial() (*TLSMaterial, error) {
	if !c.TLS.Enabled {
		return nil, nil
	}
	key, err := os.ReadFile(c.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS key file: %w", err)
	}
	cert, err := os.ReadFile(c.TLS.CertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS cert file: %w", err)
	}
	material := &TLSMaterial{Key: key, Cert: cert}
	if c.TLS.ClientCACertFile != "" {
		ca, err := os.ReadFile(c.TLS.ClientCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read TLS client CA cert file: %w", err)
		}
		material.ClientCACert = ca
	}
	return material, nil
}
