package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/cv-refiner/internal/rendering"
	"github.com/jonathan/cv-refiner/internal/types"
)

// SessionResponse describes a session
type SessionResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// sessionID parses the {id} path segment
func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}

// decode reads a JSON body into dst and validates it
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := s.validator.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError converts the first validator failure into an ErrValidation
func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Field: "body", Message: "invalid request"}
}

// handleCreateSession starts an empty session
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.CreateSession(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, SessionResponse{
		ID:        sess.ID.String(),
		CreatedAt: sess.CreatedAt.Format(http.TimeFormat),
	})
}

// handleDeleteSession tears a session down
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if err := s.service.DeleteSession(r.Context(), id); err != nil {
		s.failure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResetSession clears a session's analysis and conversation
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if err := s.service.Reset(r.Context(), id); err != nil {
		s.failure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadCV analyzes an uploaded document (multipart "file") or pasted text (JSON)
func (s *Server) handleUploadCV(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req types.AnalyzeTextRequest
		if err := s.decode(r, &req); err != nil {
			s.failure(w, r, err)
			return
		}
		result, err := s.service.AnalyzeText(r.Context(), id, req.Text)
		if err != nil {
			s.failure(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, result)
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.failure(w, r, &ErrValidation{Field: "file", Message: "expected a multipart upload: " + err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.failure(w, r, &ErrValidation{Field: "file", Message: "required"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.failure(w, r, &ErrValidation{Field: "file", Message: "unreadable: " + err.Error()})
		return
	}
	result, err := s.service.UploadCV(r.Context(), id, data, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleGetAnalysis returns the loaded analysis
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	result, err := s.service.Analysis(r.Context(), id)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handlePutAnalysis ingests a complete analysis
func (s *Server) handlePutAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	var result types.AnalysisResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		s.failure(w, r, &ErrValidation{Field: "body", Message: "invalid analysis: " + err.Error()})
		return
	}
	current, err := s.service.IngestAnalysis(r.Context(), id, &result)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, current)
}

// handlePatchAnalysis merges top-level analysis fields
func (s *Server) handlePatchAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	var patch types.AnalysisPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.failure(w, r, &ErrValidation{Field: "body", Message: "invalid patch: " + err.Error()})
		return
	}
	current, err := s.service.Patch(r.Context(), id, patch)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, current)
}

// handleSnapshot returns the display-ordered sections
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	snap, err := s.service.Snapshot(r.Context(), id)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

// handleReplaceSection replaces a legacy section wholesale
func (s *Server) handleReplaceSection(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	var req types.ReplaceSectionRequest
	if err := s.decode(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	name := r.PathValue("name")
	result, err := s.service.ReplaceSection(r.Context(), id, name, req.Section(name))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleUpdateContent replaces one section's content
func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	var req types.UpdateContentRequest
	if err := s.decode(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	result, err := s.service.UpdateContent(r.Context(), id, r.PathValue("name"), req.Content)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleEditSection asks the section editor to rework a section
func (s *Server) handleEditSection(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	var req types.EditSectionRequest
	if err := s.decode(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	result, err := s.service.EditSection(r.Context(), id, r.PathValue("name"), req.Instruction)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleRenameSections applies a batch of renames
func (s *Server) handleRenameSections(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	var req types.RenameSectionsRequest
	if err := s.decode(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	result, err := s.service.RenameSections(r.Context(), id, req.Renames)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleChat runs one chat turn
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	var req types.ChatMessageRequest
	if err := s.decode(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	reply, err := s.service.Chat(r.Context(), id, req.Message)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, reply)
}

// handleGetHighlights returns the current highlight state
func (s *Server) handleGetHighlights(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	state, err := s.service.Highlights(r.Context(), id)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleClearHighlights ends the current highlight cycle
func (s *Server) handleClearHighlights(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if err := s.service.ClearHighlights(r.Context(), id); err != nil {
		s.failure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScoreHistory returns the score history
func (s *Server) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	history, err := s.service.ScoreHistory(r.Context(), id)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if history == nil {
		history = []types.ScoreHistoryEntry{}
	}
	s.jsonResponse(w, http.StatusOK, history)
}

// htmlOptions reads export options from the query string
func htmlOptions(r *http.Request) rendering.HTMLOptions {
	scores, _ := strconv.ParseBool(r.URL.Query().Get("scores"))
	return rendering.HTMLOptions{IncludeScores: scores}
}

// handleExportHTML renders the CV as HTML
func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	html, err := s.service.ExportHTML(r.Context(), id, htmlOptions(r))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

// handleExportPDF renders the CV as PDF
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	pdf, err := s.service.ExportPDF(r.Context(), id, htmlOptions(r))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="cv.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

// handleExportText renders the CV as plain text
func (s *Server) handleExportText(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	text, err := s.service.ExportText(r.Context(), id)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}
