package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY",
		"ARK_MODEL", "MODEL", "ARK_BASE_URL", "ARK_REGION",
		"ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS",
		"AI_TIMEOUT_SECONDS",
		"INTERVIEW_TOPIC", "QUESTION_BANK_PATH", "TRANSCRIPTS_DIR",
		"INTERVIEW_MAX_TURNS", "INTERVIEW_MAX_QUESTIONS", "INTERVIEW_MAX_TOOL_ROUNDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "Excel", cfg.Interview.Topic)
	assert.Equal(t, "data/question_bank.json", cfg.Interview.BankPath)
	assert.Equal(t, "transcripts", cfg.Interview.TranscriptsDir)
	assert.Equal(t, 10, cfg.Interview.MaxAssistantTurns)
	assert.Equal(t, 3, cfg.Interview.MaxQuestions)
	assert.Equal(t, 4, cfg.Interview.MaxToolRounds)
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		want    string
		wantErr bool
	}{
		{name: "bare port", port: "9090", want: ":9090"},
		{name: "already prefixed", port: ":9090", want: ":9090"},
		{name: "host and port", port: "127.0.0.1:9090", want: "127.0.0.1:9090"},
		{name: "empty uses default", port: "", want: ":8080"},
		{name: "garbage", port: "not a port", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PORT", tt.port)

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Server.Addr)
		})
	}
}

func TestAIEnabled(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{name: "nothing set", want: false},
		{name: "model only", env: map[string]string{"ARK_MODEL": "doubao-pro"}, want: false},
		{name: "api key only", env: map[string]string{"ARK_API_KEY": "key"}, want: false},
		{
			name: "api key and model",
			env:  map[string]string{"ARK_API_KEY": "key", "ARK_MODEL": "doubao-pro"},
			want: true,
		},
		{
			name: "ak sk and model",
			env:  map[string]string{"ARK_ACCESS_KEY": "ak", "ARK_SECRET_KEY": "sk", "ARK_MODEL": "doubao-pro"},
			want: true,
		},
		{
			name: "access key without secret",
			env:  map[string]string{"ARK_ACCESS_KEY": "ak", "ARK_MODEL": "doubao-pro"},
			want: false,
		},
		{
			name: "model fallback env",
			env:  map[string]string{"ARK_API_KEY": "key", "MODEL": "doubao-pro"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.AI.Enabled())
		})
	}
}

func TestAITuningValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARK_TEMPERATURE", "0.7")
	t.Setenv("ARK_TOP_P", "0.9")
	t.Setenv("ARK_MAX_TOKENS", "2048")
	t.Setenv("AI_TIMEOUT_SECONDS", "15")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.7, *cfg.AI.Temperature, 1e-9)
	require.NotNil(t, cfg.AI.TopP)
	assert.InDelta(t, 0.9, *cfg.AI.TopP, 1e-9)
	require.NotNil(t, cfg.AI.MaxTokens)
	assert.Equal(t, 2048, *cfg.AI.MaxTokens)
	assert.Equal(t, 15*time.Second, cfg.AI.Timeout)
}

func TestInvalidNumericEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "temperature", key: "ARK_TEMPERATURE", value: "warm"},
		{name: "max tokens", key: "ARK_MAX_TOKENS", value: "lots"},
		{name: "max turns", key: "INTERVIEW_MAX_TURNS", value: "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestInterviewOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTERVIEW_TOPIC", "SQL")
	t.Setenv("QUESTION_BANK_PATH", "/srv/bank.json")
	t.Setenv("TRANSCRIPTS_DIR", "/srv/transcripts")
	t.Setenv("INTERVIEW_MAX_TURNS", "5")
	t.Setenv("INTERVIEW_MAX_QUESTIONS", "2")
	t.Setenv("INTERVIEW_MAX_TOOL_ROUNDS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "SQL", cfg.Interview.Topic)
	assert.Equal(t, "/srv/bank.json", cfg.Interview.BankPath)
	assert.Equal(t, "/srv/transcripts", cfg.Interview.TranscriptsDir)
	assert.Equal(t, 5, cfg.Interview.MaxAssistantTurns)
	assert.Equal(t, 2, cfg.Interview.MaxQuestions)
	assert.Equal(t, 6, cfg.Interview.MaxToolRounds)
}

func TestMaxTurnsClampedToOne(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTERVIEW_MAX_TURNS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Interview.MaxAssistantTurns)
}
