package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveKey(t *testing.T) {
	assert.Equal(t,
		ArchiveKey(`C:\Mods\A.bsa`, `sound\fx\hit.wav`),
		ArchiveKey(`c:\mods\a.BSA`, `SOUND\FX\HIT.WAV`))
}

func TestGetOrCreate(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	calls := 0
	create := func() (string, error) {
		calls++
		p := c.PathFor("k", "hit.wav")
		return p, os.WriteFile(p, []byte("data"), 0644)
	}

	first, err := c.GetOrCreate("k", create)
	require.NoError(t, err)
	second, err := c.GetOrCreate("k", create)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.True(t, strings.HasSuffix(first, "_hit.wav"))
	assert.Equal(t, 1, c.Len())
}

func TestGetOrCreateRecreatesVanishedFile(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	create := func() (string, error) {
		p := c.PathFor("k", "a.wav")
		return p, os.WriteFile(p, nil, 0644)
	}

	first, err := c.GetOrCreate("k", create)
	require.NoError(t, err)
	require.NoError(t, os.Remove(first))

	_, ok := c.Get("k")
	assert.False(t, ok)

	second, err := c.GetOrCreate("k", create)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.FileExists(t, second)
}

func TestGetOrCreateErrorIsNotCached(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = c.GetOrCreate("k", func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCreateConcurrent(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCreate("shared", func() (string, error) {
				atomic.AddInt32(&calls, 1)
				p := c.PathFor("shared", "x.wav")
				return p, os.WriteFile(p, nil, 0644)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "nested"))
	require.NoError(t, err)

	p, err := c.GetOrCreate("k", func() (string, error) {
		p := c.PathFor("k", "a.wav")
		return p, os.WriteFile(p, nil, 0644)
	})
	require.NoError(t, err)

	require.NoError(t, c.Clear())
	assert.NoFileExists(t, p)
	assert.Equal(t, 0, c.Len())
}

func TestPathForIsStableAcrossCaches(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir)
	require.NoError(t, err)
	second, err := New(dir)
	require.NoError(t, err)

	key := ArchiveKey(`C:\Mods\A.bsa`, `sound\fx\hit.wav`)
	assert.Equal(t, first.PathFor(key, "hit.wav"), second.PathFor(key, "hit.wav"))
	assert.NotEqual(t, first.PathFor(key, "hit.wav"), first.PathFor("other", "hit.wav"))

	// Two runs extracting the same entry leave a single file behind
	for _, c := range []*FileCache{first, second} {
		_, err := c.GetOrCreate(key, func() (string, error) {
			p := c.PathFor(key, "hit.wav")
			return p, os.WriteFile(p, []byte("data"), 0644)
		})
		require.NoError(t, err)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
