package types

import (
	"github.com/go-playground/validator/v10"
)

// AnalyzeTextRequest submits CV text for analysis.
type AnalyzeTextRequest struct {
	Text string `json:"text" validate:"required,min=20"`
}

// ChatMessageRequest is a user chat turn.
type ChatMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

// ReplaceSectionRequest carries a full legacy section replacement.
type ReplaceSectionRequest struct {
	Score       int    `json:"score" validate:"min=0,max=100"`
	Content     string `json:"content" validate:"required"`
	Feedback    string `json:"feedback"`
	Suggestions string `json:"suggestions"`
}

// UpdateContentRequest replaces the content of one section.
type UpdateContentRequest struct {
	Content string `json:"content" validate:"required"`
}

// RenameSectionsRequest maps old section names to new ones.
type RenameSectionsRequest struct {
	Renames map[string]string `json:"renames" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// EditSectionRequest asks the section editor to rework a section.
type EditSectionRequest struct {
	Instruction string `json:"instruction" validate:"required,min=1,max=2000"`
}

// Section converts the request into a CVSection named name.
func (r *ReplaceSectionRequest) Section(name string) CVSection {
	return CVSection{
		SectionName: name,
		Score:       r.Score,
		Content:     r.Content,
		Feedback:    r.Feedback,
		Suggestions: r.Suggestions,
	}
}

// Validate validates the AnalyzeTextRequest using the validator.
func (r *AnalyzeTextRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ChatMessageRequest using the validator.
func (r *ChatMessageRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ReplaceSectionRequest using the validator.
func (r *ReplaceSectionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdateContentRequest using the validator.
func (r *UpdateContentRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the RenameSectionsRequest using the validator.
func (r *RenameSectionsRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the EditSectionRequest using the validator.
func (r *EditSectionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
