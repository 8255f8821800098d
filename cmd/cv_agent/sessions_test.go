package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-refiner/internal/db"
	"github.com/jonathan/cv-refiner/internal/types"
)

type fakeLister struct {
	sessions []db.SessionSummary
	err      error
	limit    int
}

func (f *fakeLister) ListSessions(_ context.Context, limit int) ([]db.SessionSummary, error) {
	f.limit = limit
	return f.sessions, f.err
}

func TestListSessions(t *testing.T) {
	score := 82
	id := uuid.MustParse("7b0c8a58-6f0e-4c59-9d8e-0f4a3c2b1a00")
	lister := &fakeLister{sessions: []db.SessionSummary{
		{ID: id, SchemaKind: types.SchemaComprehensive, OverallScore: &score, HistoryLen: 3, UpdatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{ID: uuid.Nil, SchemaKind: types.SchemaNone},
	}}

	var buf bytes.Buffer
	require.NoError(t, listSessions(context.Background(), lister, 5, &buf))

	assert.Equal(t, 5, lister.limit)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], id.String())
	assert.Contains(t, lines[1], "comprehensive")
	assert.Contains(t, lines[1], "82")
	assert.Contains(t, lines[1], "2024-03-01 09:30:00")
	assert.Contains(t, lines[2], " - ", "missing score is shown as a dash")
}

func TestListSessions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		lister  *fakeLister
		limit   int
		wantErr string
	}{
		{name: "zero limit", lister: &fakeLister{}, limit: 0, wantErr: "invalid limit"},
		{name: "database failure", lister: &fakeLister{err: errors.New("connection refused")}, limit: 10, wantErr: "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := listSessions(context.Background(), tt.lister, tt.limit, &buf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestListSessions_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listSessions(context.Background(), &fakeLister{}, 10, &buf))
	assert.Equal(t, "No sessions found\n", buf.String())
}
