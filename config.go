package bayesopt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxConfigFileSize bounds LoadConfig input.
const maxConfigFileSize = 1 << 20

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration: one axis over [-2, 2] with
// 50 candidates, 5 random initial samples, a Gaussian process with an RBF
// kernel, UCB with Beta 2, 10 iterations of one point each.
func DefaultConfig() Config {
	return Config{
		Dimensions:     1,
		Domain:         SymmetricInterval(2),
		Resolution:     50,
		InitialSamples: 5,
		Sampler:        SamplerRandom,
		Surrogate: SurrogateConfig{
			Kind:           SurrogateGP,
			Kernel:         KernelRBF,
			LengthScale:    1,
			SignalVariance: 1,
			Alpha:          1,
			Noise:          1e-6,
			Trees:          100,
			MinLeafSize:    1,
			Hidden:         64,
			DropoutRate:    0.1,
			LearningRate:   0.01,
			Epochs:         300,
			Passes:         10,
		},
		Acquisition: AcquisitionUCB,
		AcqParams: AcquisitionParams{
			Beta: 2.0,
			Xi:   0.01,
		},
		Iterations:   10,
		BatchSize:    1,
		Seed:         42,
		ProgressChan: nil, // Default to no progress updates.
	}
}

// LoadConfig reads a JSON configuration from path on top of DefaultConfig,
// so fields omitted from the file keep their default values. The file must
// have a .json extension and be at most 1 MiB. The result is not validated;
// New does that.
//
// Example file:
//
//	{
//	    "dimensions": 2,
//	    "resolution": 30,
//	    "sampler": "lhs",
//	    "surrogate": {"kind": "forest", "trees": 50},
//	    "acquisition": "ei",
//	    "acquisition_params": {"xi": 0.05},
//	    "batch_size": 4
//	}
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}

	if info.Size() > maxConfigFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration as New does, without building
// anything. Unrecognized strategy and kernel tags are not errors; they
// resolve to their defaults.
//
// Errors are *ConfigError values wrapping a sentinel, for example:
//
//	errors.Is(cfg.Validate(), ErrBatchTooLarge)
func (c Config) Validate() error {
	if c.Dimensions < 1 {
		return configError("dimensions", ErrInvalidDimensions)
	}

	if err := c.Domain.validate(); err != nil {
		return configError("domain", err)
	}

	size, err := gridSize(c.Dimensions, c.Resolution)
	if err != nil {
		return configError("resolution", err)
	}

	sampler, _ := c.Sampler.resolve()
	if err := validateSampleCount(sampler, c.InitialSamples, c.Dimensions); err != nil {
		return configError("initial_samples", err)
	}

	if c.Iterations < 0 {
		return configError("iterations", ErrInvalidIterations)
	}

	if c.BatchSize < 1 {
		return configError("batch_size", ErrInvalidBatch)
	}

	if c.BatchSize > size {
		return configError("batch_size", fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, c.BatchSize, size))
	}

	if !isFinite(c.AcqParams.Beta) || !isFinite(c.AcqParams.Xi) {
		return configError("acquisition_params", ErrInvalidHyperparameter)
	}

	if c.Model == nil {
		kind, _ := c.Surrogate.Kind.resolve()
		if err := c.Surrogate.withDefaults().validate(kind); err != nil {
			return err
		}
	}

	return nil
}
