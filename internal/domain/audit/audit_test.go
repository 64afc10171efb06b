package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "kitanda/internal/core/context"
	"kitanda/internal/core/id"
)

func TestDiff(t *testing.T) {
	changes := Diff(
		map[string]any{"workLocation": "Luanda", "cashRegister": "CX1", "dropped": 1},
		map[string]any{"workLocation": "Benguela", "cashRegister": "CX1", "added": true},
	)

	assert.Len(t, changes, 3)
	assert.Equal(t, map[string]any{"old": "Luanda", "new": "Benguela"}, changes["workLocation"])
	assert.Equal(t, map[string]any{"old": nil, "new": true}, changes["added"])
	assert.Equal(t, map[string]any{"old": 1, "new": nil}, changes["dropped"])
	assert.NotContains(t, changes, "cashRegister")
}

func TestMemoryHistory(t *testing.T) {
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "op-1"})
	m := &Memory{}
	docID := id.New()
	other := id.New()

	require.NoError(t, m.LogChange(ctx, "document", docID, ActionCreate, nil))
	require.NoError(t, m.LogChange(ctx, "document", other, ActionCreate, nil))
	require.NoError(t, m.LogChange(ctx, "document", docID, ActionIssue, map[string]any{"number": "FT A/2026/1"}))

	history, err := m.History(ctx, "document", docID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ActionIssue, history[0].Action)
	assert.Equal(t, "op-1", history[0].UserID)

	limited, err := m.History(ctx, "document", docID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
