package data

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assetmatic/telegram-observer/internal/conf"
)

func TestNewOpenAIBackendNilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewOpenAIBackend(conf.AIConfig{}, slog.Default()))
	assert.Nil(t, NewOpenAIBackend(conf.AIConfig{APIKey: "k"}, slog.Default()))
	assert.NotNil(t, NewOpenAIBackend(conf.AIConfig{APIKey: "k", APIBase: "https://api.test/v1"}, slog.Default()))
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"chat": "dev"}`, `{"chat": "dev"}`},
		{"```json\n{\"chat\": \"dev\"}\n```", `{"chat": "dev"}`},
		{"```\n{\"chat\": \"dev\"}\n```", `{"chat": "dev"}`},
		{"  {\"date\": \"today\"}  ", `{"date": "today"}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, stripCodeFence(tc.in))
	}
}
