package blocklist

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	content := `
# aggregated blocklist
185.220.101.34
45.155.205.233   ; brute force
; comment style two
10.0.0.300
2001:db8::bad
185.220.101.34
192.0.2.0/30
`
	ips := ParseList(content)

	assert.Contains(t, ips, "185.220.101.34")
	assert.Contains(t, ips, "45.155.205.233")
	assert.Contains(t, ips, "2001:db8::bad")
	// /30 expands to 4 members
	assert.Contains(t, ips, "192.0.2.0")
	assert.Contains(t, ips, "192.0.2.3")
	assert.NotContains(t, ips, "10.0.0.300")

	// duplicate line collapsed
	count := 0
	for _, ip := range ips {
		if ip == "185.220.101.34" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestParseListSkipsWideCIDR(t *testing.T) {
	ips := ParseList("198.51.100.0/16\n")
	assert.Empty(t, ips)
}

func TestExpandCIDRSlash24(t *testing.T) {
	ips := expandCIDR("203.0.113.0/24")
	require.Len(t, ips, 256)
	assert.Equal(t, "203.0.113.0", ips[0])
	assert.Equal(t, "203.0.113.255", ips[255])
}

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := OpenIndex(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	return index
}

func TestIndexRebuildAndContains(t *testing.T) {
	index := openTestIndex(t)

	require.NoError(t, index.Rebuild([]string{"185.220.101.34", "45.155.205.233"}))

	found, err := index.Contains("185.220.101.34")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = index.Contains("8.8.8.8")
	require.NoError(t, err)
	assert.False(t, found)

	stats, err := index.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Entries)
	assert.False(t, stats.BuiltAt.IsZero())
}

func TestIndexRebuildReplacesSet(t *testing.T) {
	index := openTestIndex(t)

	require.NoError(t, index.Rebuild([]string{"1.1.1.1"}))
	require.NoError(t, index.Rebuild([]string{"2.2.2.2"}))

	found, err := index.Contains("1.1.1.1")
	require.NoError(t, err)
	assert.False(t, found, "old entries must not survive a rebuild")

	found, err = index.Contains("2.2.2.2")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestBuilderRebuildFromFile(t *testing.T) {
	source := filepath.Join(t.TempDir(), "blocklist.txt")
	require.NoError(t, os.WriteFile(source, []byte("185.220.101.34\n# comment\n"), 0o600))

	index := openTestIndex(t)
	builder := NewBuilder(index, source, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, builder.Rebuild(context.Background()))

	found, err := index.Contains("185.220.101.34")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestBuilderRebuildFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("45.155.205.233\n"))
	}))
	defer srv.Close()

	index := openTestIndex(t)
	builder := NewBuilder(index, srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, builder.Rebuild(context.Background()))

	found, err := index.Contains("45.155.205.233")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestBuilderEmptySourceKeepsIndex(t *testing.T) {
	source := filepath.Join(t.TempDir(), "blocklist.txt")
	require.NoError(t, os.WriteFile(source, []byte("# nothing here\n"), 0o600))

	index := openTestIndex(t)
	require.NoError(t, index.Rebuild([]string{"1.1.1.1"}))

	builder := NewBuilder(index, source, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, builder.Rebuild(context.Background()))

	found, err := index.Contains("1.1.1.1")
	require.NoError(t, err)
	assert.True(t, found)
}
