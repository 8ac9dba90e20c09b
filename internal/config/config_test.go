package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	content := `{
		"store": "postgres",
		"database_url": "postgres://hiring@localhost/hiring",
		"port": 9090,
		"hr_email": "hr@acme.test",
		"collaborator_timeout": "2s"
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://hiring@localhost/hiring", cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "hr@acme.test", cfg.HREmail)
	assert.Equal(t, 2*time.Second, cfg.Timeout(time.Minute))
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "empty", cfg: Config{}},
		{name: "postgres without url", cfg: Config{Store: StorePostgres}, wantErr: "database_url"},
		{name: "unknown store", cfg: Config{Store: "mongo"}, wantErr: "unknown store"},
		{name: "bad port", cfg: Config{Port: 70000}, wantErr: "port"},
		{name: "bad timeout", cfg: Config{CollaboratorTimeout: "soon"}, wantErr: "collaborator_timeout"},
		{name: "negative timeout", cfg: Config{CollaboratorTimeout: "-1s"}, wantErr: "collaborator_timeout"},
		{name: "bad hr email", cfg: Config{HREmail: "not-an-email"}, wantErr: "hr_email"},
		{name: "missing roster", cfg: Config{RosterFile: "/nonexistent/roster.yaml"}, wantErr: "roster file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		Store:       StoreSQLite,
		CompanyName: "Acme",
	}

	merged := partial.MergeWithDefaults(Defaults())

	// Custom values should be preserved
	assert.Equal(t, StoreSQLite, merged.Store)
	assert.Equal(t, "Acme", merged.CompanyName)

	// Default values should fill in empty fields
	assert.Equal(t, "data", merged.SQLiteDir)
	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, "primary", merged.CalendarID)
	assert.Equal(t, "Recruiting Team", merged.HRName)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Store: StoreMemory, Port: 3000}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, StoreMemory, merged.Store)
	assert.Equal(t, 3000, merged.Port)
	assert.Empty(t, merged.CalendarID)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HIRING_STORE", StorePostgres)
	t.Setenv("DATABASE_URL", "postgres://env@localhost/hiring")
	t.Setenv("PORT", "7000")
	t.Setenv("OFFER_PDF_ENABLED", "true")
	t.Setenv("HR_NAME", "Grace")

	cfg := Config{Store: StoreMemory, HRName: "File HR"}
	cfg.ApplyEnv()

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://env@localhost/hiring", cfg.DatabaseURL)
	assert.Equal(t, 7000, cfg.Port)
	assert.True(t, cfg.OfferPDF)
	assert.Equal(t, "Grace", cfg.HRName)
}

func TestLoad_FileThenEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"company_name": "File Co", "port": 9000}`), 0644))
	t.Setenv("COMPANY_NAME", "Env Co")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "Env Co", cfg.CompanyName)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
}

func TestTimeoutFallback(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, 3*time.Second, cfg.Timeout(3*time.Second))
}
