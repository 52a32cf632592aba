package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", zap.NewNop())
	require.Error(t, err)
}

func TestGetAbsentKey(t *testing.T) {
	s := openTestStore(t)

	value, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSetAndGet(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("greeting", []byte("hello")))

	value, err := s.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), value)

	// Overwrite.
	require.NoError(t, s.Set("greeting", []byte("shalom")))
	value, err = s.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, []byte("shalom"), value)
}

func TestGetMany(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetMany(map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}))

	values, err := s.GetMany("a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}, values, "absent keys are omitted")
}

func TestRemove(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Remove("a", "never-existed"))

	value, err := s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Set("persisted", []byte("yes")))
	require.NoError(t, s.Close())

	s2, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	value, err := s2.Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), value)
}

func waitForBatch(t *testing.T, ch <-chan []Change) []Change {
	t.Helper()

	select {
	case batch := <-ch:
		return batch
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestWatchDeliversChanges(t *testing.T) {
	s := openTestStore(t)

	ch, cancel := s.Watch()
	defer cancel()

	require.NoError(t, s.Set("a", []byte("1")))

	batch := waitForBatch(t, ch)
	require.Len(t, batch, 1)
	assert.Equal(t, "a", batch[0].Key)
	assert.Nil(t, batch[0].OldValue)
	assert.Equal(t, []byte("1"), batch[0].NewValue)

	require.NoError(t, s.Set("a", []byte("2")))

	batch = waitForBatch(t, ch)
	require.Len(t, batch, 1)
	assert.Equal(t, []byte("1"), batch[0].OldValue)
	assert.Equal(t, []byte("2"), batch[0].NewValue)
}

func TestWatchSkipsUnchangedValues(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("a", []byte("1")))

	ch, cancel := s.Watch()
	defer cancel()

	// Rewriting the same bytes produces no batch; the next real change
	// must be the first thing delivered.
	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Set("b", []byte("2")))

	batch := waitForBatch(t, ch)
	require.Len(t, batch, 1)
	assert.Equal(t, "b", batch[0].Key)
}

func TestWatchBatchesMultiKeyWrites(t *testing.T) {
	s := openTestStore(t)

	ch, cancel := s.Watch()
	defer cancel()

	require.NoError(t, s.SetMany(map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}))

	batch := waitForBatch(t, ch)
	assert.Len(t, batch, 2, "one transaction delivers one batch")
}

func TestWatchRemove(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("a", []byte("1")))

	ch, cancel := s.Watch()
	defer cancel()

	require.NoError(t, s.Remove("a"))

	batch := waitForBatch(t, ch)
	require.Len(t, batch, 1)
	assert.Equal(t, "a", batch[0].Key)
	assert.Equal(t, []byte("1"), batch[0].OldValue)
	assert.Nil(t, batch[0].NewValue)
}

func TestWatchCancelClosesChannel(t *testing.T) {
	s := openTestStore(t)

	ch, cancel := s.Watch()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Writes after cancellation must not panic.
	require.NoError(t, s.Set("a", []byte("1")))
}

func TestCloseClosesWatchers(t *testing.T) {
	s := openTestStore(t)

	ch, cancel := s.Watch()
	defer cancel()

	require.NoError(t, s.Close())

	_, open := <-ch
	assert.False(t, open)
}
