package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertHistory(t *testing.T) {
	contents := convertHistory([]Message{
		{Role: RoleUser, Content: "What is a stoma?"},
		{Role: RoleAssistant, Content: "A pore on the leaf surface."},
		{Role: RoleUser, Content: "How many per leaf?"},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "user", contents[2].Role)
	require.Len(t, contents[1].Parts, 1)
	assert.Equal(t, "A pore on the leaf surface.", contents[1].Parts[0].Text)
}

func TestConvertHistoryEmpty(t *testing.T) {
	assert.Empty(t, convertHistory(nil))
}
