package session

import "errors"

// ErrSessionNotFound indicates no live or persisted session has the requested ID
var ErrSessionNotFound = errors.New("session not found")

// ErrNoAnalysis indicates the operation needs a loaded analysis and the session has none
var ErrNoAnalysis = errors.New("no analysis loaded")

// ErrPDFUnavailable indicates the service was built without a PDF renderer
var ErrPDFUnavailable = errors.New("pdf export is not configured")

// ErrManagerClosed indicates the manager was closed and accepts no new sessions
var ErrManagerClosed = errors.New("session manager closed")
