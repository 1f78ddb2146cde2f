package model

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjection_NothingSelected(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))

	p := NewProjection(m)
	assert.Equal(t, "", p.CurrentCode())
	assert.Equal(t, "", p.Name())
	assert.Equal(t, 0, p.TimeLeft())
	assert.Equal(t, 0, p.TimeInterval())
	assert.NoError(t, p.Copy())
}

func TestProjection_SelectedEntry(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))

	// RFC 6238 SHA1 seed; at t=59 the 6-digit code is 287082.
	idx := m.Add("Example", "alice", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ")
	require.Equal(t, 0, idx)
	m.Select(idx)

	p := NewProjection(m)
	p.now = func() time.Time { return time.Unix(59, 0) }

	assert.Equal(t, "Example for alice", p.Name())
	assert.Equal(t, "Example", p.Issuer())
	assert.Equal(t, "287082", p.CurrentCode())
	assert.Equal(t, 1, p.TimeLeft())
	assert.Equal(t, 30, p.TimeInterval())
}

func TestProjection_TracksClock(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))
	m.Select(m.Add("E", "a", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"))

	p := NewProjection(m)
	clock := time.Unix(30, 0)
	p.now = func() time.Time { return clock }

	atBoundary := p.CurrentCode()
	assert.Equal(t, 30, p.TimeLeft())

	clock = time.Unix(59, 0)
	assert.Equal(t, atBoundary, p.CurrentCode(), "same window, same code")
	assert.Equal(t, 1, p.TimeLeft())

	// Clock jumps (suspend/resume) land in the right window because the
	// code is recomputed from the wall clock, not decremented.
	clock = time.Unix(3600, 0)
	assert.NotEqual(t, atBoundary, p.CurrentCode())
	assert.Equal(t, 30, p.TimeLeft())
}

func TestProjection_Copy(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))
	m.Select(m.Add("E", "a", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"))

	p := NewProjection(m)
	p.now = func() time.Time { return time.Unix(59, 0) }

	var copied string
	p.clip = func(s string) error {
		copied = s
		return nil
	}
	require.NoError(t, p.Copy())
	assert.Equal(t, "287082", copied)
}

func TestProjection_SelectionRemovedFallsBackToEmpty(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, unlockWait(t, m, "pw"))
	m.Select(m.Add("E", "a", "MFRGG"))

	p := NewProjection(m)
	require.NotEqual(t, "", p.CurrentCode())

	require.True(t, m.Remove(0))
	assert.Equal(t, "", p.CurrentCode())
	assert.Equal(t, 0, p.TimeLeft())
}
