package source

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPMTestServer(t *testing.T, body string) (*httptest.Server, *ProjectManagement) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	pm := NewProjectManagement(ProjectManagementConfig{BaseURL: srv.URL, APIKey: "test-key"})
	return srv, pm
}

func TestProjectManagementPollAcceptsBareArray(t *testing.T) {
	_, pm := newPMTestServer(t, `[{"id":"t1","title":"Renew contract","assignee":"ops","due_date":"2026-07-25","project_id":"p1"}]`)

	candidates, err := pm.Poll(t.Context())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "t1:2026-07-25", candidates[0].DedupKey)
}

func TestProjectManagementPollAcceptsWrappedTasksField(t *testing.T) {
	_, pm := newPMTestServer(t, `{"tasks":[{"id":"t2","title":"Follow up","due_date":"2026-07-26"}]}`)

	candidates, err := pm.Poll(t.Context())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "t2:2026-07-26", candidates[0].DedupKey)
}

func TestProjectManagementPollAcceptsWrappedDataField(t *testing.T) {
	_, pm := newPMTestServer(t, `{"data":[{"id":"t3","title":"Escalate","due_date":"2026-07-27"}]}`)

	candidates, err := pm.Poll(t.Context())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "t3:2026-07-27", candidates[0].DedupKey)
}

func TestProjectManagementPollSkipsTasksWithoutID(t *testing.T) {
	_, pm := newPMTestServer(t, `[{"id":"","title":"no id"},{"id":"t4","title":"has id","due_date":"2026-07-28"}]`)

	candidates, err := pm.Poll(t.Context())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "t4:2026-07-28", candidates[0].DedupKey)
}

func TestNewProjectManagementReturnsNilWithoutConfig(t *testing.T) {
	assert.Nil(t, NewProjectManagement(ProjectManagementConfig{}))
	assert.Nil(t, NewProjectManagement(ProjectManagementConfig{BaseURL: "https://example.com"}))
}

func TestProjectManagementPollToleratesUnrecognizedObjectShape(t *testing.T) {
	_, pm := newPMTestServer(t, `{"unexpected":"shape"}`)

	candidates, err := pm.Poll(t.Context())
	require.NoError(t, err) // unexpected object shape decodes to empty task lists, not an error
	assert.Empty(t, candidates)
}
