package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesync/go-site-settings/subsystems"
)

type storeFactory struct {
	name string
	make func(t *testing.T) subsystems.SnapshotStore
}

func allStores() []storeFactory {
	return []storeFactory{
		{"memory", func(*testing.T) subsystems.SnapshotStore { return NewMemoryStore() }},
		{"directory", func(t *testing.T) subsystems.SnapshotStore {
			s, err := NewDirectoryStore(filepath.Join(t.TempDir(), "snapshots"))
			require.NoError(t, err)
			return s
		}},
		{"namespaced", func(*testing.T) subsystems.SnapshotStore {
			return Namespaced(DefaultNamespace, NewMemoryStore())
		}},
	}
}

func TestSnapshotStores(t *testing.T) {
	for _, f := range allStores() {
		t.Run(f.name, func(t *testing.T) {
			t.Run("get missing key", func(t *testing.T) {
				s := f.make(t)
				value, ok, err := s.Get("logo")
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Nil(t, value)
			})

			t.Run("set and get", func(t *testing.T) {
				s := f.make(t)
				require.NoError(t, s.Set("logo", []byte(`{"altText":"a"}`)))
				value, ok, err := s.Get("logo")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, `{"altText":"a"}`, string(value))
			})

			t.Run("set replaces", func(t *testing.T) {
				s := f.make(t)
				require.NoError(t, s.Set("logo", []byte(`1`)))
				require.NoError(t, s.Set("logo", []byte(`2`)))
				value, _, err := s.Get("logo")
				require.NoError(t, err)
				assert.Equal(t, "2", string(value))
			})

			t.Run("remove", func(t *testing.T) {
				s := f.make(t)
				require.NoError(t, s.Set("logo", []byte(`1`)))
				require.NoError(t, s.Remove("logo"))
				_, ok, err := s.Get("logo")
				require.NoError(t, err)
				assert.False(t, ok)
				assert.NoError(t, s.Remove("logo"))
			})

			t.Run("keys with separators", func(t *testing.T) {
				s := f.make(t)
				require.NoError(t, s.Set("content_page:about/team", []byte(`"x"`)))
				value, ok, err := s.Get("content_page:about/team")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, `"x"`, string(value))
			})
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	data := []byte("abc")
	require.NoError(t, s.Set("k", data))
	data[0] = 'x'
	value, _, _ := s.Get("k")
	assert.Equal(t, "abc", string(value))
	value[1] = 'y'
	again, _, _ := s.Get("k")
	assert.Equal(t, "abc", string(again))
}

func TestNamespacedStoreKeepsKeysApart(t *testing.T) {
	base := NewMemoryStore()
	a := Namespaced("a:", base)
	b := Namespaced("b:", base)
	require.NoError(t, a.Set("logo", []byte("1")))

	_, ok, _ := b.Get("logo")
	assert.False(t, ok)
	value, ok, _ := base.Get("a:logo")
	assert.True(t, ok)
	assert.Equal(t, "1", string(value))
}

func TestDirectoryStoreIsSharedBetweenInstances(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewDirectoryStore(dir)
	require.NoError(t, err)
	s2, err := NewDirectoryStore(dir)
	require.NoError(t, err)

	require.NoError(t, s1.Set("footer", []byte(`{}`)))
	value, ok, err := s2.Get("footer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "{}", string(value))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files should be left behind")
}

func TestDirectoryStoreCannotCreateDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err := NewDirectoryStore(filepath.Join(file, "sub"))
	assert.Error(t, err)
}

func TestBuilders(t *testing.T) {
	ctx := subsystems.BasicClientContext{}

	s, err := InMemory().Build(ctx)
	require.NoError(t, err)
	assert.NotNil(t, s)

	shared := NewMemoryStore()
	s1, err := Shared(shared).Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, shared, s1)

	dir := filepath.Join(t.TempDir(), "d")
	s2, err := Directory(dir).Build(ctx)
	require.NoError(t, err)
	assert.IsType(t, &DirectoryStore{}, s2)
}
