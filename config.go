package docflow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the engine.
type Config struct {
	// SubmitRate caps mutating calls per second. Zero disables the limit.
	SubmitRate float64 `yaml:"submit_rate"`

	// SubmitBurst is the number of calls admitted above SubmitRate at once.
	SubmitBurst int `yaml:"submit_burst"`

	// BaseFee is charged for every submitted mutation, committed or reverted.
	BaseFee uint64 `yaml:"base_fee"`

	// ItemFee is charged per argument item (doc ids, edge targets) of a call.
	ItemFee uint64 `yaml:"item_fee"`

	// CallTimeout bounds how long a single mutation may run.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// PageSize is the default page size for open-workflow enumeration.
	PageSize int `yaml:"page_size"`

	// ResubmitAttempts is how often a client tries a call that keeps
	// losing USN races.
	ResubmitAttempts int `yaml:"resubmit_attempts"`

	// ResubmitFloor and ResubmitCeiling bound the wait between those tries.
	ResubmitFloor   time.Duration `yaml:"resubmit_floor"`
	ResubmitCeiling time.Duration `yaml:"resubmit_ceiling"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SubmitRate:  0,
		SubmitBurst: 1,
		BaseFee:     21,
		ItemFee:     3,
		CallTimeout: 5 * time.Second,
		PageSize:    10,

		ResubmitAttempts: 5,
		ResubmitFloor:    10 * time.Millisecond,
		ResubmitCeiling:  time.Second,
	}
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("docflow: read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("docflow: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.SubmitRate < 0 {
		return fmt.Errorf("docflow: submit_rate must be >= 0, got %v", c.SubmitRate)
	}
	if c.SubmitBurst < 1 {
		return fmt.Errorf("docflow: submit_burst must be >= 1, got %d", c.SubmitBurst)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("docflow: page_size must be >= 1, got %d", c.PageSize)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("docflow: call_timeout must be >= 0, got %v", c.CallTimeout)
	}
	if c.ResubmitAttempts < 1 {
		return fmt.Errorf("docflow: resubmit_attempts must be >= 1, got %d", c.ResubmitAttempts)
	}
	if c.ResubmitFloor < 0 || c.ResubmitCeiling < c.ResubmitFloor {
		return fmt.Errorf("docflow: resubmit window [%v, %v] is invalid", c.ResubmitFloor, c.ResubmitCeiling)
	}
	return nil
}
