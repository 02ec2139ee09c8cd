package config

import (
	"os"
	"testing"
)

// clearEnv unsets all LEARN_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"LEARN_SERVER_PORT",
		"LEARN_SERVER_HOST",
		"LEARN_DATABASE_URL",
		"LEARN_DATABASE_MAX_CONNS",
		"LEARN_DATABASE_MIN_CONNS",
		"LEARN_DATABASE_AUTO_MIGRATE",
		"LEARN_CACHE_URL",
		"LEARN_INFERENCE_URL",
		"LEARN_INFERENCE_TIMEOUT_SECONDS",
		"LEARN_ACTIVITY_BACKEND",
		"LEARN_PROFILE_BACKEND",
		"LEARN_LIBRARY_PATH",
		"LEARN_STUDY_BASELINE_READINESS",
		"LEARN_STUDY_RECENT_ACTIVITY_LIMIT",
		"LEARN_STUDY_DEFAULT_GRADE",
		"LEARN_STUDY_DEFAULT_DAILY_GOAL",
		"LEARN_STUDY_WORKSPACE_IDLE_MINUTES",
		"LEARN_LOG_LEVEL",
		"LEARN_LOG_FORMAT",
	}
	for _, v := range envVars {
		_ = os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want 25", cfg.Database.MaxConns)
	}
	if !cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate should default to true")
	}
	if cfg.Cache.URL != "redis://localhost:6379" {
		t.Errorf("Cache.URL = %q, want redis://localhost:6379", cfg.Cache.URL)
	}
	if cfg.Inference.URL != "http://localhost:8000" {
		t.Errorf("Inference.URL = %q, want http://localhost:8000", cfg.Inference.URL)
	}
	if cfg.Inference.TimeoutSeconds != 0 {
		t.Errorf("Inference.TimeoutSeconds = %d, want 0", cfg.Inference.TimeoutSeconds)
	}
	if cfg.Storage.ActivityBackend != "memory" {
		t.Errorf("Storage.ActivityBackend = %q, want memory", cfg.Storage.ActivityBackend)
	}
	if cfg.Storage.ProfileBackend != "memory" {
		t.Errorf("Storage.ProfileBackend = %q, want memory", cfg.Storage.ProfileBackend)
	}
	if cfg.Study.BaselineReadiness != 60 {
		t.Errorf("Study.BaselineReadiness = %d, want 60", cfg.Study.BaselineReadiness)
	}
	if cfg.Study.RecentActivityLimit != 5 {
		t.Errorf("Study.RecentActivityLimit = %d, want 5", cfg.Study.RecentActivityLimit)
	}
	if cfg.Study.DefaultGrade != 10 {
		t.Errorf("Study.DefaultGrade = %d, want 10", cfg.Study.DefaultGrade)
	}
	if cfg.Study.DefaultDailyGoal != 30 {
		t.Errorf("Study.DefaultDailyGoal = %d, want 30", cfg.Study.DefaultDailyGoal)
	}
	if cfg.Study.WorkspaceIdle != 60 {
		t.Errorf("Study.WorkspaceIdle = %d, want 60", cfg.Study.WorkspaceIdle)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v; defaults should pass", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("LEARN_SERVER_PORT", "9090")
	t.Setenv("LEARN_INFERENCE_URL", "http://inference:9000")
	t.Setenv("LEARN_INFERENCE_TIMEOUT_SECONDS", "45")
	t.Setenv("LEARN_ACTIVITY_BACKEND", "redis")
	t.Setenv("LEARN_PROFILE_BACKEND", "postgres")
	t.Setenv("LEARN_DATABASE_AUTO_MIGRATE", "false")
	t.Setenv("LEARN_STUDY_DEFAULT_GRADE", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Inference.URL != "http://inference:9000" {
		t.Errorf("Inference.URL = %q, want http://inference:9000", cfg.Inference.URL)
	}
	if cfg.Inference.TimeoutSeconds != 45 {
		t.Errorf("Inference.TimeoutSeconds = %d, want 45", cfg.Inference.TimeoutSeconds)
	}
	if cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate should be false")
	}
	if cfg.Study.DefaultGrade != 8 {
		t.Errorf("Study.DefaultGrade = %d, want 8", cfg.Study.DefaultGrade)
	}
	if !cfg.NeedsDatabase() {
		t.Error("NeedsDatabase() should be true with postgres profile backend")
	}
	if !cfg.NeedsCache() {
		t.Error("NeedsCache() should be true with redis activity backend")
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEARN_SERVER_PORT", "not-a-port")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want fallback 8080", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		envKey  string
		envVal  string
		wantErr bool
	}{
		{"defaults", "", "", false},
		{"redis activity", "LEARN_ACTIVITY_BACKEND", "redis", false},
		{"postgres activity", "LEARN_ACTIVITY_BACKEND", "postgres", false},
		{"unknown activity", "LEARN_ACTIVITY_BACKEND", "kafka", true},
		{"redis profile", "LEARN_PROFILE_BACKEND", "redis", true},
		{"zero daily goal", "LEARN_STUDY_DEFAULT_DAILY_GOAL", "0", true},
		{"negative recent limit", "LEARN_STUDY_RECENT_ACTIVITY_LIMIT", "-1", true},
		{"zero baseline", "LEARN_STUDY_BASELINE_READINESS", "0", false},
		{"negative baseline", "LEARN_STUDY_BASELINE_READINESS", "-10", true},
		{"baseline above 60", "LEARN_STUDY_BASELINE_READINESS", "61", true},
		{"lowest grade", "LEARN_STUDY_DEFAULT_GRADE", "5", false},
		{"grade too low", "LEARN_STUDY_DEFAULT_GRADE", "4", true},
		{"grade too high", "LEARN_STUDY_DEFAULT_GRADE", "12", true},
		{"idle eviction off", "LEARN_STUDY_WORKSPACE_IDLE_MINUTES", "0", false},
		{"negative idle", "LEARN_STUDY_WORKSPACE_IDLE_MINUTES", "-5", true},
		{"text log format", "LEARN_LOG_FORMAT", "text", false},
		{"xml log format", "LEARN_LOG_FORMAT", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.envKey != "" {
				t.Setenv(tt.envKey, tt.envVal)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAutoMigrateParsing(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want bool
	}{
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"false", "false", false},
		{"1", "1", true},
		{"0", "0", false},
		{"empty", "", true},
		{"invalid", "notabool", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.val != "" {
				t.Setenv("LEARN_DATABASE_AUTO_MIGRATE", tt.val)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Database.AutoMigrate != tt.want {
				t.Errorf("Database.AutoMigrate = %v, want %v", cfg.Database.AutoMigrate, tt.want)
			}
		})
	}
}
