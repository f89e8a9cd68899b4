// Package config loads assetpub configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/publish"
	"github.com/tomasbasham/assetpub/internal/remote"
	"github.com/tomasbasham/assetpub/internal/storage"
	"github.com/tomasbasham/assetpub/internal/updateinfo"
)

// DefaultPath is read when neither a path nor ASSETPUB_CONFIG is given. It
// may be absent.
const DefaultPath = "./assetpub.yaml"

const (
	DefaultInputDir   = "dist"
	DefaultStorageDir = ".assetpub/store"
)

// Config is the full assetpub configuration.
type Config struct {
	ProjectID      string           `yaml:"project_id" json:"project_id"`
	InputDir       string           `yaml:"input_dir" json:"input_dir"`
	Platforms      []asset.Platform `yaml:"platforms" json:"platforms"`
	Branch         string           `yaml:"branch" json:"branch"`
	RuntimeVersion string           `yaml:"runtime_version" json:"runtime_version"`
	AssetLimit     int              `yaml:"asset_limit" json:"asset_limit"`
	Concurrency    int              `yaml:"concurrency" json:"concurrency"`
	Poll           Poll             `yaml:"poll" json:"poll"`
	Storage        storage.Config   `yaml:"storage" json:"storage"`

	// App is attached to every platform's update info as extra.expoClient.
	App map[string]any `yaml:"app" json:"app,omitempty"`
}

// Poll tunes the upload polling loop.
type Poll struct {
	Interval    time.Duration `yaml:"interval" json:"interval"`
	MaxInterval time.Duration `yaml:"max_interval" json:"max_interval"`
	MaxRounds   int           `yaml:"max_rounds" json:"max_rounds"`

	// ReuploadAfter is the number of rounds without progress before missing
	// assets are uploaded again.
	ReuploadAfter int `yaml:"reupload_after" json:"reupload_after"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		InputDir:    DefaultInputDir,
		Platforms:   append([]asset.Platform(nil), asset.DefaultPlatforms...),
		Branch:      publish.DefaultBranch,
		AssetLimit:  remote.DefaultAssetLimit,
		Concurrency: updateinfo.DefaultConcurrency,
		Poll: Poll{
			Interval:      publish.DefaultPollInterval,
			MaxInterval:   publish.DefaultMaxPollInterval,
			ReuploadAfter: publish.DefaultReuploadAfter,
		},
		Storage: storage.Config{
			Type:         storage.TypeDisk,
			Dir:          DefaultStorageDir,
			SignedURLTTL: storage.DefaultSignedURLTTL,
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path falls back to ASSETPUB_CONFIG and then
// DefaultPath; only an explicitly named file is required to exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("ASSETPUB_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	c := Default()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ASSETPUB_STORAGE_TYPE"); v != "" {
		c.Storage.Type = storage.Type(v)
	}
	if v := os.Getenv("ASSETPUB_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("ASSETPUB_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("ASSETPUB_S3_REGION"); v != "" {
		c.Storage.Region = v
	}
	if v := os.Getenv("ASSETPUB_S3_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv("ASSETPUB_PROJECT_ID"); v != "" {
		c.ProjectID = v
	}
	if v := os.Getenv("ASSETPUB_BRANCH"); v != "" {
		c.Branch = v
	}
	if v := os.Getenv("ASSETPUB_RUNTIME_VERSION"); v != "" {
		c.RuntimeVersion = v
	}
	if v := os.Getenv("ASSETPUB_PUBLIC_URL"); v != "" {
		c.Storage.PublicURL = v
	}
	if v := os.Getenv("ASSETPUB_PLATFORMS"); v != "" {
		c.Platforms = nil
		for _, p := range splitComma(v) {
			c.Platforms = append(c.Platforms, asset.Platform(p))
		}
	}
	if v := os.Getenv("ASSETPUB_ASSET_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: ASSETPUB_ASSET_LIMIT: %w", err)
		}
		c.AssetLimit = n
	}
	return nil
}

// Validate reports settings that cannot work regardless of the command run.
func (c *Config) Validate() error {
	if c.AssetLimit < 0 {
		return fmt.Errorf("config: asset_limit must not be negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config: concurrency must not be negative")
	}
	if c.Poll.MaxRounds < 0 {
		return fmt.Errorf("config: poll.max_rounds must not be negative")
	}
	if c.Poll.ReuploadAfter < 0 {
		return fmt.Errorf("config: poll.reupload_after must not be negative")
	}
	if c.Storage.SignedURLTTL < 0 {
		return fmt.Errorf("config: storage.signed_url_ttl must not be negative")
	}
	switch c.Storage.Type {
	case storage.TypeDisk, "":
	case storage.TypeGCS, storage.TypeS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("config: storage.bucket is required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("config: unsupported storage type %q", c.Storage.Type)
	}
	return nil
}

// Extra returns the opaque metadata attached to every platform's update info.
func (c *Config) Extra() map[string]any {
	if len(c.App) == 0 {
		return nil
	}
	return map[string]any{"expoClient": c.App}
}

// UploaderOptions maps the polling settings onto publish.Options.
func (c *Config) UploaderOptions() publish.Options {
	return publish.Options{
		Concurrency:     c.Concurrency,
		PollInterval:    c.Poll.Interval,
		MaxPollInterval: c.Poll.MaxInterval,
		MaxPollRounds:   c.Poll.MaxRounds,
		ReuploadAfter:   c.Poll.ReuploadAfter,
	}
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
