package client

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJar_PersistsBoundHostOnly(t *testing.T) {
	base, _ := url.Parse("http://shop.test")
	other, _ := url.Parse("http://elsewhere.test")
	path := filepath.Join(t.TempDir(), "jar.json")

	j, err := OpenJar(path, base)
	require.NoError(t, err)
	j.SetCookies(base, []*http.Cookie{{Name: "token", Value: "t1", Path: "/"}})
	j.SetCookies(other, []*http.Cookie{{Name: "foreign", Value: "x", Path: "/"}})
	require.NoError(t, j.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := OpenJar(path, base)
	require.NoError(t, err)
	assert.Equal(t, "t1", reopened.Value("token"))
	assert.Empty(t, reopened.Cookies(other))
}

func TestJar_DeletionAndExpiry(t *testing.T) {
	base, _ := url.Parse("http://shop.test")
	path := filepath.Join(t.TempDir(), "jar.json")

	j, err := OpenJar(path, base)
	require.NoError(t, err)
	j.SetCookies(base, []*http.Cookie{
		{Name: "token", Value: "t1", Path: "/"},
		{Name: "short", Value: "s", Path: "/", MaxAge: 3600},
	})
	j.SetCookies(base, []*http.Cookie{{Name: "token", Value: "", Path: "/", MaxAge: -1}})
	assert.Empty(t, j.Value("token"))
	require.NoError(t, j.Save())

	later, err := OpenJar(path, base)
	require.NoError(t, err)
	assert.Equal(t, "s", later.Value("short"))
	assert.Empty(t, later.Value("token"))
}

func TestOpenJar_SkipsExpired(t *testing.T) {
	base, _ := url.Parse("http://shop.test")
	path := filepath.Join(t.TempDir(), "jar.json")
	data := `[{"name":"old","value":"v","path":"/","expires":"2001-01-01T00:00:00Z"},{"name":"fresh","value":"f","path":"/"}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	j, err := OpenJar(path, base)
	require.NoError(t, err)
	assert.Empty(t, j.Value("old"))
	assert.Equal(t, "f", j.Value("fresh"))
}

func TestOpenJar_Errors(t *testing.T) {
	base, _ := url.Parse("http://shop.test")

	j, err := OpenJar(filepath.Join(t.TempDir(), "missing.json"), base)
	require.NoError(t, err)
	assert.Empty(t, j.Value("token"))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o600))
	_, err = OpenJar(bad, base)
	assert.Error(t, err)
}
