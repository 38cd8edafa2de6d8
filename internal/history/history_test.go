package history

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/matfixer/internal/matfix"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func assignReport(at time.Time, failed ...string) *matfix.Report {
	rep := &matfix.Report{Action: matfix.ActionAssign, StartedAt: at, Shader: "Standard", Processed: 3}
	rep.Assigned = []matfix.Assignment{{Material: "wall", Texture: "wall", Kind: matfix.MatchExact}}
	for _, name := range failed {
		rep.Failed = append(rep.Failed, matfix.Failure{Material: name, Path: "Assets/" + name + ".mat", Suggestion: name + "_d"})
	}
	return rep
}

func TestRecordReplacesFailedList(t *testing.T) {
	s := openTestStore(t)
	t0 := time.Unix(1700000000, 0)

	require.NoError(t, s.Record("run-1", assignReport(t0, "ivy", "rail"), "backups/run-1.zip"))
	failed, err := s.Failed()
	require.NoError(t, err)
	assert.Equal(t, []matfix.Failure{
		{Material: "ivy", Path: "Assets/ivy.mat", Suggestion: "ivy_d"},
		{Material: "rail", Path: "Assets/rail.mat", Suggestion: "rail_d"},
	}, failed)

	require.NoError(t, s.Record("run-2", assignReport(t0.Add(time.Minute), "truss"), ""))
	failed, err = s.Failed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "truss", failed[0].Material)
}

func TestFixNormalsKeepsFailedList(t *testing.T) {
	s := openTestStore(t)
	t0 := time.Unix(1700000000, 0)
	require.NoError(t, s.Record("run-1", assignReport(t0, "ivy"), ""))

	fix := &matfix.Report{Action: matfix.ActionFixNormals, StartedAt: t0.Add(time.Second), Reimported: []string{"a_normal"}}
	require.NoError(t, s.Record("run-2", fix, ""))
	failed, err := s.Failed()
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	unassign := &matfix.Report{Action: matfix.ActionUnassign, StartedAt: t0.Add(2 * time.Second), Cleared: []string{"ivy"}}
	require.NoError(t, s.Record("run-3", unassign, ""))
	failed, err = s.Failed()
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestClearFailed(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Record("run-1", assignReport(time.Now(), "ivy", "rail"), ""))

	n, err := s.ClearFailed()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	failed, err := s.Failed()
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestRuns(t *testing.T) {
	s := openTestStore(t)
	t0 := time.Unix(1700000000, 500)
	require.NoError(t, s.Record("older", assignReport(t0, "ivy"), "backups/older.zip"))
	require.NoError(t, s.Record("newer", assignReport(t0.Add(time.Hour)), ""))

	runs, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].ID)

	older := runs[1]
	assert.Equal(t, matfix.ActionAssign, older.Action)
	assert.True(t, t0.Equal(older.StartedAt))
	assert.Equal(t, "Standard", older.Shader)
	assert.Equal(t, 3, older.Processed)
	assert.Equal(t, 1, older.Assigned)
	assert.Equal(t, 1, older.Failed)
	assert.Equal(t, "backups/older.zip", older.Backup)

	runs, err = s.Runs(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	got, err := s.Run("older")
	require.NoError(t, err)
	assert.Equal(t, older, got)

	_, err = s.Run("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDuplicateRunID(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Record("same", assignReport(time.Now(), "ivy"), ""))
	assert.Error(t, s.Record("same", assignReport(time.Now(), "rail"), ""))

	failed, err := s.Failed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "ivy", failed[0].Material)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
