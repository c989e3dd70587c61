// Package config loads datalab CLI settings from defaults, an optional YAML
// file and DATALAB_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/datalab/ml"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"github.com/YuminosukeSato/datalab/preprocessing"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// DATALAB_LOG_LEVEL or DATALAB_HYPERPARAMETERS_N_ESTIMATORS.
const EnvPrefix = "DATALAB"

// Output formats accepted by the output key.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Range is the default target interval of normalize.
type Range struct {
	Min float64 `mapstructure:"min" yaml:"min"`
	Max float64 `mapstructure:"max" yaml:"max"`
}

// Config is the effective CLI configuration.
type Config struct {
	LogLevel          string             `mapstructure:"log_level" yaml:"log_level"`
	Output            string             `mapstructure:"output" yaml:"output"`
	TestFraction      float64            `mapstructure:"test_fraction" yaml:"test_fraction"`
	CVFolds           int                `mapstructure:"cv_folds" yaml:"cv_folds"`
	Hyperparameters   ml.Hyperparameters `mapstructure:"hyperparameters" yaml:"hyperparameters"`
	Normalize         Range              `mapstructure:"normalize" yaml:"normalize"`
	OutlierMultiplier float64            `mapstructure:"outlier_multiplier" yaml:"outlier_multiplier"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:     "warn",
		Output:       OutputText,
		TestFraction: ml.DefaultTestFraction,
		CVFolds:      ml.DefaultCVFolds,
		Hyperparameters: ml.Hyperparameters{
			Degree:          ml.DefaultPolynomialRegression().Degree,
			MaxDepth:        ml.DefaultDecisionTree().MaxDepth,
			MinSamplesSplit: ml.DefaultDecisionTree().MinSamplesSplit,
			NEstimators:     ml.DefaultRandomForest().NEstimators,
			NClusters:       ml.DefaultKMeans().NClusters,
			MaxIter:         ml.DefaultKMeans().MaxIter,
			Seed:            ml.DefaultRandomForest().Seed,
		},
		Normalize:         Range{Min: 0, Max: 1},
		OutlierMultiplier: preprocessing.DefaultOutlierMultiplier,
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("output", d.Output)
	v.SetDefault("test_fraction", d.TestFraction)
	v.SetDefault("cv_folds", d.CVFolds)
	v.SetDefault("hyperparameters.degree", d.Hyperparameters.Degree)
	v.SetDefault("hyperparameters.max_depth", d.Hyperparameters.MaxDepth)
	v.SetDefault("hyperparameters.min_samples_split", d.Hyperparameters.MinSamplesSplit)
	v.SetDefault("hyperparameters.n_estimators", d.Hyperparameters.NEstimators)
	v.SetDefault("hyperparameters.n_clusters", d.Hyperparameters.NClusters)
	v.SetDefault("hyperparameters.max_iter", d.Hyperparameters.MaxIter)
	v.SetDefault("hyperparameters.seed", d.Hyperparameters.Seed)
	v.SetDefault("normalize.min", d.Normalize.Min)
	v.SetDefault("normalize.max", d.Normalize.Max)
	v.SetDefault("outlier_multiplier", d.OutlierMultiplier)
}

// Load builds the configuration. Precedence: env > config file > defaults.
//
// An explicit cfgFile must exist. Without one, ./datalab.yaml and
// ~/.datalab/config.yaml are searched and a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	} else {
		v.SetConfigName("datalab")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".datalab"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every value against the range its consumer accepts.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return errors.NewValidationError("output", "must be text or json", c.Output)
	}
	if !(c.TestFraction > 0 && c.TestFraction < 1) {
		return errors.NewValidationError("test_fraction", "must lie in (0, 1)", c.TestFraction)
	}
	if c.CVFolds < 2 {
		return errors.NewValidationError("cv_folds", "must be at least 2", c.CVFolds)
	}
	if c.Normalize.Min >= c.Normalize.Max {
		return errors.NewValidationError("normalize", "min must be below max", c.Normalize)
	}
	if c.OutlierMultiplier <= 0 {
		return errors.NewValidationError("outlier_multiplier", "must be positive", c.OutlierMultiplier)
	}
	return c.Hyperparameters.Validate()
}

// Save writes c as YAML to path, creating parent directories.
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "mkdir config dir")
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}
