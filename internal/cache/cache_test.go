package cache

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = "http://www.linux-usb.org/usb.ids"

func TestPutGet(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nested"), time.Hour)
	assert.Nil(t, c.Get(key))

	entry, err := c.Put(key, strings.NewReader("0001  Vendor\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), entry.Size)
	assert.False(t, entry.IsExpired())

	got := c.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, c.Path(key), got.Path)
	assert.Less(t, got.Age(), time.Minute)

	f, err := got.Open()
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "0001  Vendor\n", string(data))
}

func TestExpiredEntry(t *testing.T) {
	c := New(t.TempDir(), time.Hour)
	_, err := c.Put(key, strings.NewReader("old"))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(c.Path(key), past, past))

	assert.Nil(t, c.Get(key))
	entry := c.GetEntry(key)
	require.NotNil(t, entry)
	assert.True(t, entry.IsExpired())
}

func TestDistinctKeys(t *testing.T) {
	c := New(t.TempDir(), 0)
	assert.Equal(t, TTLStatic, c.TTL())
	assert.NotEqual(t, c.Path("a"), c.Path("b"))
	assert.Equal(t, c.Path("a"), c.Path("a"))
}

func TestDeleteAndClear(t *testing.T) {
	c := New(t.TempDir(), time.Hour)
	for _, k := range []string{"a", "b", "c"} {
		_, err := c.Put(k, strings.NewReader(k))
		require.NoError(t, err)
	}

	require.NoError(t, c.Delete("a"))
	require.NoError(t, c.Delete("a"))
	assert.Nil(t, c.Get("a"))
	assert.NotNil(t, c.Get("b"))

	require.NoError(t, c.Clear())
	assert.Nil(t, c.Get("b"))
	assert.Nil(t, c.Get("c"))

	require.NoError(t, New(filepath.Join(t.TempDir(), "missing"), time.Hour).Clear())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestPutFailureKeepsPreviousEntry(t *testing.T) {
	c := New(t.TempDir(), time.Hour)
	_, err := c.Put(key, strings.NewReader("good"))
	require.NoError(t, err)

	_, err = c.Put(key, failingReader{})
	require.Error(t, err)

	data, err := os.ReadFile(c.Path(key))
	require.NoError(t, err)
	assert.Equal(t, "good", string(data))

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
