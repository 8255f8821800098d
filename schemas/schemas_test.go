package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-refiner/internal/schemas"
	embedded "github.com/jonathan/cv-refiner/schemas"
)

func TestAllSchemaFiles_Compile(t *testing.T) {
	for _, name := range embedded.All() {
		t.Run(name, func(t *testing.T) {
			content, err := embedded.Get(name)
			require.NoError(t, err)

			var v map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(content), &v), "schema file should be valid JSON")
			assert.Contains(t, v, "$schema")

			_, err = schemas.Compile(name, content)
			assert.NoError(t, err)
		})
	}
}

func TestGet_Unknown(t *testing.T) {
	_, err := embedded.Get("missing.schema.json")
	assert.Error(t, err)
}

func TestAnalysisSchema(t *testing.T) {
	content, err := embedded.Get(embedded.Analysis)
	require.NoError(t, err)
	v, err := schemas.Compile(embedded.Analysis, content)
	require.NoError(t, err)

	tests := []struct {
		name      string
		document  string
		wantError bool
	}{
		{
			name: "legacy",
			document: `{
				"overall_score": 72,
				"summary": "Solid",
				"ats_compatibility": {"score": 80, "feedback": "ok", "suggestions": []},
				"sections": [{"section_name": "Skills", "score": 70, "content": "Go", "feedback": "", "suggestions": ""}]
			}`,
		},
		{
			name: "comprehensive",
			document: `{
				"summary": "Solid",
				"ats_compatibility": {"score": 80, "feedback": "ok"},
				"cv_header": {"name": "Jane Doe", "title": "Engineer", "email": null},
				"original_cv_sections": [{"section_name": "Experience", "content": "5 years", "order": 1}],
				"overall_summary": {"overall_score": 75},
				"section_scores": {"Experience": 70}
			}`,
		},
		{
			name:      "neither schema",
			document:  `{"summary": "Solid", "overall_score": 50}`,
			wantError: true,
		},
		{
			name: "both schemas",
			document: `{
				"sections": [{"section_name": "Skills", "score": 70, "content": "Go"}],
				"original_cv_sections": [{"section_name": "Skills", "content": "Go", "order": 1}]
			}`,
			wantError: true,
		},
		{
			name:      "score out of range",
			document:  `{"overall_score": 140, "sections": []}`,
			wantError: true,
		},
		{
			name:      "section without name",
			document:  `{"sections": [{"score": 70, "content": "Go"}]}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.document))
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChatResponseSchema(t *testing.T) {
	content, err := embedded.Get(embedded.ChatResponse)
	require.NoError(t, err)

	assert.NoError(t, schemas.ValidateJSONString(content, `{"response": "done", "cv_updates": {"Skills": "Go"}, "score_improvements": {"Skills": 85}}`))
	assert.NoError(t, schemas.ValidateJSONString(content, `{"response": "nothing to change", "cv_updates": null}`))
	assert.Error(t, schemas.ValidateJSONString(content, `{"cv_updates": {}}`))
	assert.Error(t, schemas.ValidateJSONString(content, `{"response": "x", "score_improvements": {"Skills": "high"}}`))
}

func TestEditResultSchema(t *testing.T) {
	content, err := embedded.Get(embedded.EditResult)
	require.NoError(t, err)

	assert.NoError(t, schemas.ValidateJSONString(content, `{"updated_section": {"section_name": "Skills", "score": 85, "content": "Go, Rust"}, "updated_score": 78}`))
	assert.Error(t, schemas.ValidateJSONString(content, `{"updated_section": {"section_name": "Skills", "score": 85, "content": "Go"}}`))
	assert.Error(t, schemas.ValidateJSONString(content, `{"updated_section": {"section_name": "", "score": 85, "content": "Go"}, "updated_score": 78}`))
}
