package cvheader

import (
	"testing"

	"github.com/jonathan/cv-refiner/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestParseContactBlock_Fields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field func(types.PartialCVHeader) *string
		want  string
	}{
		{name: "email label", input: "Email: a@b.com", field: email, want: "a@b.com"},
		{name: "email label any case", input: "EMAIL:   jane@example.org", field: email, want: "jane@example.org"},
		{name: "bare email", input: "jane@example.org", field: email, want: "jane@example.org"},
		{name: "phone label", input: "Phone: 555-1234", field: phone, want: "555-1234"},
		{name: "phone shaped line", input: "+44 (0)20 7946 0958", field: phone, want: "+44 (0)20 7946 0958"},
		{name: "mobile label", input: "Mobile: 07700 900123", field: phone, want: "07700 900123"},
		{name: "linkedin label", input: "LinkedIn: jane-doe", field: linkedIn, want: "jane-doe"},
		{name: "linkedin url", input: "https://linkedin.com/in/jane", field: linkedIn, want: "https://linkedin.com/in/jane"},
		{name: "github label", input: "GitHub: janedoe", field: gitHub, want: "janedoe"},
		{name: "github url", input: "github.com/janedoe", field: gitHub, want: "github.com/janedoe"},
		{name: "location label", input: "Location: Berlin, Germany", field: location, want: "Berlin, Germany"},
		{name: "address label", input: "Address: 1 Main St", field: location, want: "1 Main St"},
		{name: "website label", input: "Website: https://jane.dev", field: website, want: "https://jane.dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.field(ParseContactBlock(tt.input))
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, *got)
			}
		})
	}
}

func TestParseContactBlock_MultiLine(t *testing.T) {
	got := ParseContactBlock("Email: a@b.com\nPhone: 555-1234")

	assert.Equal(t, "a@b.com", types.Deref(got.Email))
	assert.Equal(t, "555-1234", types.Deref(got.Phone))
	assert.Nil(t, got.Name)
	assert.Nil(t, got.LinkedIn)
	assert.Nil(t, got.Location)
}

func TestParseContactBlock_UnrecognizedLeavesFieldsNil(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "blank lines", input: "\n   \n\t"},
		{name: "free text", input: "Available for relocation"},
		{name: "label without value", input: "Email:\nPhone:"},
		{name: "too short for a phone", input: "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, ParseContactBlock(tt.input).IsEmpty())
		})
	}
}

func TestParseHeaderBlock(t *testing.T) {
	got := ParseHeaderBlock("\n  Jane Doe  \nSenior Engineer\njane@example.com | +1 415 555 0100\n")

	assert.Equal(t, "Jane Doe", types.Deref(got.Name))
	assert.Equal(t, "jane@example.com", types.Deref(got.Email))
	assert.Equal(t, "+1 415 555 0100", types.Deref(got.Phone))
	assert.Nil(t, got.Title)
}

func TestParseHeaderBlock_NameOnly(t *testing.T) {
	got := ParseHeaderBlock("Jane Doe")
	assert.Equal(t, "Jane Doe", types.Deref(got.Name))
	assert.Nil(t, got.Email)
	assert.Nil(t, got.Phone)

	assert.True(t, ParseHeaderBlock("   ").IsEmpty())
}

func email(h types.PartialCVHeader) *string    { return h.Email }
func phone(h types.PartialCVHeader) *string    { return h.Phone }
func linkedIn(h types.PartialCVHeader) *string { return h.LinkedIn }
func gitHub(h types.PartialCVHeader) *string   { return h.GitHub }
func location(h types.PartialCVHeader) *string { return h.Location }
func website(h types.PartialCVHeader) *string  { return h.Website }
