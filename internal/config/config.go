package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	// DefaultWindowDays is how far ahead events are listed when no end date is given.
	DefaultWindowDays = 90

	FormatText = "text"
	FormatICS  = "ics"
)

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// Config holds the configuration for the gcal tool.
type Config struct {
	// AppDir holds credentials, the token, the config file and debug output.
	AppDir string `toml:"-"`

	CredentialsPath string `toml:"credentials_path"`
	TokenPath       string `toml:"token_path"`

	WindowDays int      `toml:"window_days"` // days listed when --end is not given
	MaxResults int      `toml:"max_results"` // 0 means no limit
	Show       []string `toml:"show"`        // display option names, see ParseDisplayOptions
	Exclude    []string `toml:"exclude"`     // calendar names never listed

	// IncludeGroupCalendars keeps Google's shared group calendars
	// (holidays, weather, ...) which are skipped by default.
	IncludeGroupCalendars bool `toml:"include_group_calendars"`

	// Strict aborts a run on the first malformed event instead of skipping it.
	Strict bool `toml:"strict"`

	// RecordResponses appends raw API responses to ResponsesPath().
	RecordResponses bool   `toml:"record_responses"`
	Format          string `toml:"format"` // "text" or "ics"
}

// ResponsesPath is where raw API responses are recorded.
func (c *Config) ResponsesPath() string {
	return filepath.Join(c.AppDir, "api-responses")
}

// Overrides carries command-line values. Zero values leave the lower
// precedence settings alone.
type Overrides struct {
	CredentialsPath string
	TokenPath       string
	MaxResults      int
	Show            []string
	// ExtraShow is added to the effective show list instead of replacing it.
	ExtraShow       []string
	Exclude         []string
	Strict          bool
	RecordResponses bool
	Format          string

	IncludeGroupCalendars bool
}

// DefaultAppDir returns $GCAL_HOME, or ~/.local/gcal.
func DefaultAppDir() (string, error) {
	if dir := os.Getenv("GCAL_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".local", "gcal"), nil
}

// EnsureAppDir creates the application directory. It is private because it
// holds OAuth credentials.
func EnsureAppDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create application directory: %w", err)
	}
	return nil
}

// Defaults returns the configuration used when nothing else is set.
func Defaults(appDir string) *Config {
	return &Config{
		AppDir:          appDir,
		CredentialsPath: filepath.Join(appDir, "credentials.json"),
		TokenPath:       filepath.Join(appDir, "token.json"),
		WindowDays:      DefaultWindowDays,
		Format:          FormatText,
	}
}

// LoadConfigFromFile decodes a TOML config file over cfg. Unknown keys are
// rejected.
func LoadConfigFromFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables (including .env files)
// 3. Config file (configFile, or config.toml in appDir if present)
// 4. Defaults
func LoadConfig(appDir, configFile string, flags Overrides) (*Config, error) {
	config := Defaults(appDir)

	// Step 1: Load from config file
	if configFile != "" {
		if err := LoadConfigFromFile(configFile, config); err != nil {
			return nil, err
		}
	} else {
		defaultFile := filepath.Join(appDir, "config.toml")
		if _, err := os.Stat(defaultFile); err == nil {
			if err := LoadConfigFromFile(defaultFile, config); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	// Step 2: Override with environment variables
	if err := loadDotEnv(filepath.Join(appDir, ".env"), ".env"); err != nil {
		return nil, err
	}
	if v := os.Getenv("GCAL_CREDENTIALS_PATH"); v != "" {
		config.CredentialsPath = v
	}
	if v := os.Getenv("GCAL_TOKEN_PATH"); v != "" {
		config.TokenPath = v
	}
	if v := os.Getenv("GCAL_WINDOW_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GCAL_WINDOW_DAYS value: %w", err)
		}
		config.WindowDays = days
	}
	if v := os.Getenv("GCAL_SHOW"); v != "" {
		show, err := ParseCSV(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GCAL_SHOW value: %w", err)
		}
		config.Show = show
	}
	if v := os.Getenv("GCAL_EXCLUDE"); v != "" {
		exclude, err := ParseCSV(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GCAL_EXCLUDE value: %w", err)
		}
		config.Exclude = exclude
	}
	if v := os.Getenv("GCAL_STRICT"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GCAL_STRICT value: %w", err)
		}
		config.Strict = strict
	}
	if v := os.Getenv("GCAL_FORMAT"); v != "" {
		config.Format = v
	}

	// Step 3: Override with command-line flags (highest priority)
	if flags.CredentialsPath != "" {
		config.CredentialsPath = flags.CredentialsPath
	}
	if flags.TokenPath != "" {
		config.TokenPath = flags.TokenPath
	}
	if flags.MaxResults != 0 {
		config.MaxResults = flags.MaxResults
	}
	if len(flags.Show) > 0 {
		config.Show = flags.Show
	}
	for _, name := range flags.ExtraShow {
		if !slices.Contains(config.Show, name) {
			config.Show = append(slices.Clip(config.Show), name)
		}
	}
	if len(flags.Exclude) > 0 {
		config.Exclude = flags.Exclude
	}
	if flags.Strict {
		config.Strict = true
	}
	if flags.IncludeGroupCalendars {
		config.IncludeGroupCalendars = true
	}
	if flags.RecordResponses {
		config.RecordResponses = true
	}
	if flags.Format != "" {
		config.Format = flags.Format
	}

	// Step 4: Validate
	if config.WindowDays <= 0 {
		return nil, fmt.Errorf("window_days must be positive, got %d", config.WindowDays)
	}
	if config.MaxResults < 0 {
		return nil, fmt.Errorf("max_results must not be negative, got %d", config.MaxResults)
	}
	if config.Format != FormatText && config.Format != FormatICS {
		return nil, fmt.Errorf("format must be '%s' or '%s', got '%s'", FormatText, FormatICS, config.Format)
	}
	if _, err := ParseDisplayOptions(config.Show); err != nil {
		return nil, err
	}

	return config, nil
}

// loadDotEnv loads the .env files that exist. Variables already set in the
// environment are left untouched.
func loadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
