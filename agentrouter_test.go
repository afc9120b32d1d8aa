package agentrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/config"
	"github.com/hupe1980/agentrouter/reasoning"
)

func TestStructuredProviderSelection(t *testing.T) {
	t.Run("defaults to the main provider", func(t *testing.T) {
		cfg := config.Default()
		cfg.Reasoning.Provider = "openai"
		cfg.Reasoning.Model = "gpt-4o"

		structured, err := structuredProvider(cfg)
		require.NoError(t, err)
		assert.Nil(t, structured, "without structured_model all stages run on the main model")
	})

	t.Run("builds a dedicated extraction provider", func(t *testing.T) {
		cfg := config.Default()
		cfg.Reasoning.Provider = "openai"
		cfg.Reasoning.Model = "gpt-4o"
		cfg.Reasoning.StructuredModel = "gpt-4o-mini"

		main, err := buildProvider(cfg, cfg.Reasoning.Model)
		require.NoError(t, err)
		structured, err := structuredProvider(cfg)
		require.NoError(t, err)
		require.NotNil(t, structured)
		assert.NotSame(t, main, structured)

		type describable interface {
			Info() reasoning.Info
		}
		assert.Equal(t, "gpt-4o", main.(describable).Info().Name)
		assert.Equal(t, "gpt-4o-mini", structured.(describable).Info().Name)
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		cfg := config.Default()
		cfg.Reasoning.Provider = "llama"
		cfg.Reasoning.StructuredModel = "llama-mini"

		_, err := structuredProvider(cfg)
		assert.Error(t, err)
	})
}
