package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"productchat/internal/model"
)

func TestTrimMessages(t *testing.T) {
	messages := []model.Message{
		{Content: "one"},
		{Content: "two"},
		{Content: "three"},
	}

	t.Run("keeps the most recent messages", func(t *testing.T) {
		trimmed := trimMessages(messages, 2)
		assert.Len(t, trimmed, 2)
		assert.Equal(t, "two", trimmed[0].Content)
		assert.Equal(t, "three", trimmed[1].Content)
	})

	t.Run("no limit returns everything", func(t *testing.T) {
		assert.Len(t, trimMessages(messages, 0), 3)
		assert.Len(t, trimMessages(messages, 10), 3)
	})
}
