package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkspaceNotFound(t *testing.T) {
	err := &WorkspaceNotFoundError{ID: "ws-1"}
	assert.Equal(t, `workspace "ws-1" is not connected`, err.Error())
}

func TestNotFoundWorkspace(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantOK bool
		wantID string
	}{
		{
			name:   "workspace not found",
			err:    &WorkspaceNotFoundError{ID: "ws-1"},
			wantOK: true,
			wantID: "ws-1",
		},
		{
			name:   "wrapped",
			err:    fmt.Errorf("relaying: %w", &WorkspaceNotFoundError{ID: "ws-2"}),
			wantOK: true,
			wantID: "ws-2",
		},
		{
			name:   "random error",
			err:    New("err"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, ok := NotFoundWorkspace(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestTerminalNotFound(t *testing.T) {
	assert.Equal(t, `terminal "t-1" not found`, (&TerminalNotFoundError{ID: "t-1"}).Error())
}
