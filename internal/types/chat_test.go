package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatResponse_PreservesUpdateOrder(t *testing.T) {
	payload := `{
		"response": "Updated three sections",
		"cv_updates": {"Skills": "Go", "Experience": "7 years", "Education": "BSc"},
		"section_renames": {"Work": "Work Experience"},
		"score_improvements": {"Skills": 85}
	}`

	var resp ChatResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))

	update := resp.Update()
	require.Len(t, update.Updates, 3)
	assert.Equal(t, "Skills", update.Updates[0].SectionName)
	assert.Equal(t, "Experience", update.Updates[1].SectionName)
	assert.Equal(t, "Education", update.Updates[2].SectionName)
	assert.Equal(t, "7 years", update.Updates[1].Content)
	assert.Equal(t, "Work Experience", update.Renames["Work"])
	assert.Equal(t, 85, update.ScoreImprovements["Skills"])
	assert.False(t, update.IsEmpty())
}

func TestSectionUpdates_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    SectionUpdates
		wantErr bool
	}{
		{name: "null", json: `null`, want: nil},
		{name: "empty object", json: `{}`, want: SectionUpdates{}},
		{name: "array rejected", json: `["a"]`, wantErr: true},
		{name: "non-string content rejected", json: `{"Skills": 3}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SectionUpdates
			err := json.Unmarshal([]byte(tt.json), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSectionUpdates_MarshalInOrder(t *testing.T) {
	updates := SectionUpdates{{SectionName: "b", Content: "2"}, {SectionName: "a", Content: "1"}}
	data, err := json.Marshal(updates)
	require.NoError(t, err)
	assert.Equal(t, `{"b":"2","a":"1"}`, string(data))
}

func TestChatUpdate_IsEmpty(t *testing.T) {
	assert.True(t, ChatUpdate{}.IsEmpty())
	assert.False(t, ChatUpdate{Renames: map[string]string{"a": "b"}}.IsEmpty())
}
