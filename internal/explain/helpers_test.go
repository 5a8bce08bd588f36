package explain

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func configWithKey(key string) config.LLMConfig {
	return config.LLMConfig{
		Enabled:     key != "",
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		APIKey:      key,
		MaxTokens:   256,
		Temperature: 0.2,
	}
}
