package config

// FileConfig holds overrides for a single Figma file key. This lets one
// config file drive feeds of several files with different roots or
// credentials (e.g., files owned by different teams).
type FileConfig struct {
	// Token overrides the global access token for this file.
	Token string `yaml:"token,omitempty"`

	// Root roots the crawl at a specific node id instead of the file's
	// document root.
	Root string `yaml:"root,omitempty"`

	// BatchSize overrides the global batch size. Zero keeps the global.
	BatchSize int `yaml:"batchSize,omitempty"`

	// Concurrency overrides the global concurrency. Zero keeps the global.
	Concurrency int `yaml:"concurrency,omitempty"`

	// OutputDir overrides where this file's section tree is written.
	OutputDir string `yaml:"outputDir,omitempty"`
}

// File represents the .figmafeeder configuration file.
type File struct {
	// Files maps Figma file keys to their overrides.
	Files map[string]FileConfig `yaml:"files,omitempty"`

	// Defaults applies to every file unless overridden per key.
	Defaults FileConfig `yaml:"defaults,omitempty"`
}

// GetFileConfig returns the effective configuration for a file key:
// the defaults with the key-specific overrides applied.
func (cf *File) GetFileConfig(fileKey string) FileConfig {
	result := cf.Defaults

	if override, ok := cf.Files[fileKey]; ok {
		if override.Token != "" {
			result.Token = override.Token
		}
		if override.Root != "" {
			result.Root = override.Root
		}
		if override.BatchSize > 0 {
			result.BatchSize = override.BatchSize
		}
		if override.Concurrency > 0 {
			result.Concurrency = override.Concurrency
		}
		if override.OutputDir != "" {
			result.OutputDir = override.OutputDir
		}
	}

	return result
}
