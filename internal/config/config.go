// Package config provides configuration loading and validation for the
// hiring server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config represents the configuration that can be loaded from a JSON file
// and overridden by environment variables. All fields are optional.
type Config struct {
	// Storage
	Store       string `json:"store,omitempty"`        // postgres, sqlite or memory
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	SQLiteDir   string `json:"sqlite_dir,omitempty"`   // Directory holding hiring.db

	// Server
	Port int `json:"port,omitempty"`

	// Collaborators
	GoogleCredentialsFile string `json:"google_credentials_file,omitempty"` // Service account or OAuth credentials
	CalendarID            string `json:"calendar_id,omitempty"`             // Calendar events are created on
	MailSender            string `json:"mail_sender,omitempty"`             // From address of notifications
	CollaboratorTimeout   string `json:"collaborator_timeout,omitempty"`    // e.g. "5s"
	OfferPDF              bool   `json:"offer_pdf,omitempty"`               // Attach a Chrome-printed offer letter

	// Company
	CompanyName string `json:"company_name,omitempty"`
	HRName      string `json:"hr_name,omitempty"`
	HREmail     string `json:"hr_email,omitempty"`
	RosterFile  string `json:"roster_file,omitempty"` // YAML interviewer roster

	Verbose bool `json:"verbose,omitempty"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Store:               StoreMemory,
		SQLiteDir:           "data",
		Port:                8080,
		CalendarID:          "primary",
		CollaboratorTimeout: "5s",
		CompanyName:         "Our Company",
		HRName:              "Recruiting Team",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields with any of the recognised environment
// variables that are set.
func (c *Config) ApplyEnv() {
	setString(&c.Store, "HIRING_STORE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SQLiteDir, "SQLITE_DIR")
	setString(&c.GoogleCredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&c.CalendarID, "CALENDAR_ID")
	setString(&c.MailSender, "MAIL_SENDER")
	setString(&c.CollaboratorTimeout, "COLLABORATOR_TIMEOUT")
	setString(&c.CompanyName, "COMPANY_NAME")
	setString(&c.HRName, "HR_NAME")
	setString(&c.HREmail, "HR_EMAIL")
	setString(&c.RosterFile, "ROSTER_FILE")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("OFFER_PDF_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.OfferPDF = b
		}
	}
}

func setString(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.Store {
	case "", StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres store")
		}
	case StoreSQLite:
		if c.SQLiteDir == "" {
			return fmt.Errorf("config error: 'sqlite_dir' is required for the sqlite store")
		}
	default:
		return fmt.Errorf("config error: unknown store %q", c.Store)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.CollaboratorTimeout != "" {
		d, err := time.ParseDuration(c.CollaboratorTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("config error: 'collaborator_timeout' must be a positive duration, got %q", c.CollaboratorTimeout)
		}
	}
	for field, value := range map[string]string{"mail_sender": c.MailSender, "hr_email": c.HREmail} {
		if value == "" {
			continue
		}
		if _, err := mail.ParseAddress(value); err != nil {
			return fmt.Errorf("config error: '%s' is not an email address: %s", field, value)
		}
	}

	// Validate file paths exist (if specified)
	if c.RosterFile != "" {
		if _, err := os.Stat(c.RosterFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: roster file not found: %s", c.RosterFile)
		}
	}
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: credentials file not found: %s", c.GoogleCredentialsFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Store == "" {
		result.Store = defaults.Store
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SQLiteDir == "" {
		result.SQLiteDir = defaults.SQLiteDir
	}
	if result.GoogleCredentialsFile == "" {
		result.GoogleCredentialsFile = defaults.GoogleCredentialsFile
	}
	if result.CalendarID == "" {
		result.CalendarID = defaults.CalendarID
	}
	if result.MailSender == "" {
		result.MailSender = defaults.MailSender
	}
	if result.CollaboratorTimeout == "" {
		result.CollaboratorTimeout = defaults.CollaboratorTimeout
	}
	if result.CompanyName == "" {
		result.CompanyName = defaults.CompanyName
	}
	if result.HRName == "" {
		result.HRName = defaults.HRName
	}
	if result.HREmail == "" {
		result.HREmail = defaults.HREmail
	}
	if result.RosterFile == "" {
		result.RosterFile = defaults.RosterFile
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// Timeout returns the collaborator timeout, or fallback when unset or invalid.
func (c *Config) Timeout(fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(c.CollaboratorTimeout); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Load reads the optional JSON file at path, applies the environment and
// fills defaults.
func Load(path string) (Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}
