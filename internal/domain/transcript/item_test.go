package transcript

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendAssignsIDs(t *testing.T) {
	var log Log

	stored := log.Append(UserMessage("open the news"), Item{ID: "rs_1", Type: Reasoning, Summary: []string{"thinking"}})

	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)
	assert.Equal(t, "rs_1", stored[1].ID)
	assert.Equal(t, 2, log.Len())
}

func TestLogPreservesOrder(t *testing.T) {
	var log Log

	log.Append(UserMessage("one"))
	log.Append(AssistantMessage("two"), UserMessage("three"))

	var contents []string
	for _, it := range log.Items() {
		contents = append(contents, it.Content)
	}
	assert.Equal(t, []string{"one", "two", "three"}, contents)
}

func TestLogItemsIsCopy(t *testing.T) {
	var log Log
	log.Append(UserMessage("original"))

	items := log.Items()
	items[0].Content = "changed"

	assert.Equal(t, "original", log.Items()[0].Content)
	assert.Equal(t, 1, log.Len())
}

func TestIsAssistantMessage(t *testing.T) {
	assert.True(t, AssistantMessage("done").IsAssistantMessage())
	assert.False(t, UserMessage("go").IsAssistantMessage())
	assert.False(t, Item{Type: ComputerCall, Role: Assistant}.IsAssistantMessage())
}

func TestItemJSONOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(Item{ID: "x", Type: ComputerCall, CallID: "call_1", Action: map[string]any{"type": "click"}})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "computer_call", fields["type"])
	assert.Equal(t, "call_1", fields["call_id"])
	assert.NotContains(t, fields, "role")
	assert.NotContains(t, fields, "screenshot")
}
