package tool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/tool"
)

func echoTool(name, group string, schema map[string]any) *tool.Tool {
	return &tool.Tool{
		Name:        name,
		Description: "test tool",
		Group:       group,
		InputSchema: schema,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegisterAndExecuteDispatchesToHandler(t *testing.T) {
	r := tool.New(nil, nil)
	require.NoError(t, r.Register(echoTool("memory_search", "memory", nil)))

	result, err := r.Execute(t.Context(), "memory_search", map[string]any{"query": "cc legal"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"query": "cc legal"}, result)
}

func TestExecuteUnknownToolErrors(t *testing.T) {
	r := tool.New(nil, nil)
	_, err := r.Execute(t.Context(), "does_not_exist", nil)
	assert.Error(t, err)
}

func TestExecuteValidatesAgainstInputSchema(t *testing.T) {
	r := tool.New(nil, nil)
	schema := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"ticket_id": map[string]any{"type": "integer"}},
		"required":             []any{"ticket_id"},
		"additionalProperties": false,
	}
	require.NoError(t, r.Register(echoTool("ticketing_update_ticket", "ticketing", schema)))

	_, err := r.Execute(t.Context(), "ticketing_update_ticket", map[string]any{"ticket_id": 42})
	require.NoError(t, err)

	_, err = r.Execute(t.Context(), "ticketing_update_ticket", map[string]any{"not_ticket_id": "x"})
	assert.Error(t, err)
}

type fakeLimiter struct{ allow bool }

func (f fakeLimiter) CheckToolRateLimit(ctx context.Context, toolName string) (bool, error) {
	return f.allow, nil
}

func TestExecuteEnforcesRateLimit(t *testing.T) {
	r := tool.New(nil, fakeLimiter{allow: false})
	require.NoError(t, r.Register(echoTool("mail_send_approved", "mail", nil)))

	_, err := r.Execute(t.Context(), "mail_send_approved", nil)
	assert.Error(t, err)
}

func TestDefinitionsFiltersByCredentialAvailability(t *testing.T) {
	available := func(group string) bool { return group != "ticketing" }
	r := tool.New(available, nil)
	require.NoError(t, r.Register(echoTool("ticketing_get_tickets", "ticketing", nil)))
	require.NoError(t, r.Register(echoTool("mail_get_new_messages", "mail", nil)))

	defs := r.Definitions(model.SourceMail)
	names := make(map[string]bool)
	for _, d := range defs {
		names[d.Name] = true
	}
	assert.True(t, names["mail_get_new_messages"])
	assert.False(t, names["ticketing_get_tickets"], "ticketing group should be filtered out when unavailable")
}

func TestDefinitionsAlwaysIncludesMemoryGroup(t *testing.T) {
	r := tool.New(nil, nil)
	require.NoError(t, r.Register(echoTool("memory_search", "memory", nil)))

	defs := r.Definitions(model.SourceDrive)
	require.Len(t, defs, 1)
	assert.Equal(t, "memory_search", defs[0].Name)
}

func TestUnregisterRemovesTool(t *testing.T) {
	r := tool.New(nil, nil)
	require.NoError(t, r.Register(echoTool("memory_search", "memory", nil)))
	r.Unregister("memory_search")

	_, ok := r.Get("memory_search")
	assert.False(t, ok)
}
