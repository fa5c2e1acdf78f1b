package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/reviewaudit/internal/rules"
	"github.com/nao1215/reviewaudit/internal/site"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".reviewaudit"

// File represents the structure of the .reviewaudit configuration file.
//
// Layout and Rules start from the built-in defaults; keys present in the
// file replace the matching default entry, lists are replaced as a whole.
type File struct {
	// Layout maps page categories to glob patterns.
	Layout site.Layout `yaml:"layout"`

	// Rules is the category expectation policy.
	Rules *rules.Policy `yaml:"rules"`

	// Similarity holds the near-duplicate text settings.
	Similarity SimilarityConfig `yaml:"similarity"`
}

// SimilarityConfig holds the near-duplicate text settings of the file.
type SimilarityConfig struct {
	// Threshold overrides the default similarity threshold when set.
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// DefaultFile returns the configuration used when no file exists.
func DefaultFile() *File {
	return &File{
		Layout: site.DefaultLayout(),
		Rules:  rules.Default(),
	}
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	cf := DefaultFile()
	if err := yaml.Unmarshal(data, cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// An explicit "rules:" or "layout:" with no value resets to null.
	if cf.Rules == nil {
		cf.Rules = rules.Default()
	}
	if cf.Layout == nil {
		cf.Layout = site.DefaultLayout()
	}

	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cf, nil
}

// Validate checks the layout patterns, the rules and the threshold.
func (cf *File) Validate() error {
	if err := cf.Layout.Validate(); err != nil {
		return err
	}
	if err := cf.Rules.Validate(); err != nil {
		return err
	}
	if t := cf.Similarity.Threshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, *t)
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .reviewaudit in the current directory
// 3. Look for .reviewaudit in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
