package teamcity

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCookieJar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	content := "# Netscape HTTP Cookie File\n" +
		"\n" +
		"#HttpOnly_ci.example.org\tFALSE\t/\tTRUE\t0\tTCSESSIONID\tabc123\n" +
		".example.org\tTRUE\t/\tFALSE\t0\tshared\tyes\n" +
		"other.example.com\tFALSE\t/\tFALSE\t0\tTCSESSIONID\tnope\n" +
		"ci.example.org\tFALSE\t/\tFALSE\t1\told\tgone\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	jar := NewFileCookieJar(path)
	u, err := url.Parse("https://ci.example.org/app/rest/builds")
	require.NoError(t, err)

	got := map[string]string{}
	for _, c := range jar.Cookies(u) {
		got[c.Name] = c.Value
	}
	require.NoError(t, jar.Err())
	assert.Equal(t, map[string]string{"TCSESSIONID": "abc123", "shared": "yes"}, got)

	// Secure cookies stay off plain HTTP.
	plain, err := url.Parse("http://ci.example.org/")
	require.NoError(t, err)
	for _, c := range jar.Cookies(plain) {
		assert.NotEqual(t, "TCSESSIONID", c.Name)
	}
}

func TestFileCookieJar_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("ci.example.org\tFALSE\t/\n"), 0o600))

	jar := NewFileCookieJar(path)
	u, err := url.Parse("https://ci.example.org/")
	require.NoError(t, err)

	assert.Empty(t, jar.Cookies(u))
	assert.Error(t, jar.Err())
}

func TestFileCookieJar_Missing(t *testing.T) {
	jar := NewFileCookieJar(filepath.Join(t.TempDir(), "missing.txt"))
	u, err := url.Parse("https://ci.example.org/")
	require.NoError(t, err)

	assert.Empty(t, jar.Cookies(u))
	assert.ErrorIs(t, jar.Err(), os.ErrNotExist)
}
