package x402

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultValidityWindow bounds how long a signed authorization stays valid
const DefaultValidityWindow = time.Hour

// Config configures a payment client. It is read-only once the client is built.
type Config struct {
	// AuthorizationType selects the strategy used to sign payments (default eip3009)
	AuthorizationType AuthorizationType `json:"authorizationType" yaml:"authorizationType" validate:"omitempty,oneof=eip3009 permit permit2"`

	// EVMRPCURL overrides the RPC endpoint used for contract reads such as permit nonces
	EVMRPCURL string `json:"evmRpcUrl,omitempty" yaml:"evmRpcUrl" validate:"omitempty,url"`

	// SVMRPCURL overrides the RPC endpoint used by Solana-family signers
	SVMRPCURL string `json:"svmRpcUrl,omitempty" yaml:"svmRpcUrl" validate:"omitempty,url"`

	// ValidityWindow is the EIP-3009 validBefore horizon and the permit deadline horizon
	ValidityWindow time.Duration `json:"validityWindow,omitempty" yaml:"validityWindow" validate:"gte=0s"`
}

var validate = validator.New()

// WithDefaults returns a copy of the config with empty fields filled in
func (c Config) WithDefaults() Config {
	if c.AuthorizationType == "" {
		c.AuthorizationType = DefaultAuthorizationType
	}
	if c.ValidityWindow == 0 {
		c.ValidityWindow = DefaultValidityWindow
	}
	return c
}

// Validate checks field values. It does not apply defaults.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q check (value %v)", ErrInvalidConfig, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ParseConfig reads a YAML document into a validated Config with defaults applied
func ParseConfig(data []byte) (Config, error) {
	var raw struct {
		AuthorizationType string `yaml:"authorizationType"`
		EVMRPCURL         string `yaml:"evmRpcUrl"`
		SVMRPCURL         string `yaml:"svmRpcUrl"`
		ValidityWindow    string `yaml:"validityWindow"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse yaml: %v", ErrInvalidConfig, err)
	}

	authType, err := ParseAuthorizationType(raw.AuthorizationType)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AuthorizationType: authType,
		EVMRPCURL:         raw.EVMRPCURL,
		SVMRPCURL:         raw.SVMRPCURL,
	}
	if raw.ValidityWindow != "" {
		window, err := time.ParseDuration(raw.ValidityWindow)
		if err != nil {
			return Config{}, fmt.Errorf("%w: invalid validityWindow %q", ErrInvalidConfig, raw.ValidityWindow)
		}
		cfg.ValidityWindow = window
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg.WithDefaults(), nil
}

// LoadConfig reads a YAML config file from disk
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}
