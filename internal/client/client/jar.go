package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"httpOnly"`
}

// Jar is an http.CookieJar that remembers the cookies of one server in a
// JSON file. Cookies of other hosts are kept in memory only.
type Jar struct {
	mu      sync.Mutex
	inner   *cookiejar.Jar
	path    string
	base    *url.URL
	cookies map[string]*http.Cookie
	now     func() time.Time
}

// OpenJar loads path, if it exists, into a jar bound to base. An empty path
// gives an in-memory jar.
func OpenJar(path string, base *url.URL) (*Jar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &Jar{inner: inner, path: path, base: base, cookies: map[string]*http.Cookie{}, now: time.Now}
	if path == "" {
		return j, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse cookie jar: %w", err)
	}

	cs := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		if !s.Expires.IsZero() && s.Expires.Before(j.now()) {
			continue
		}
		cs = append(cs, &http.Cookie{
			Name: s.Name, Value: s.Value, Path: s.Path, Expires: s.Expires, Secure: s.Secure, HttpOnly: s.HttpOnly,
		})
	}
	j.SetCookies(base, cs)
	return j, nil
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
	if u.Host != j.base.Host {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(j.now())) {
			delete(j.cookies, c.Name)
			continue
		}
		cp := *c
		if cp.MaxAge > 0 {
			cp.Expires = j.now().Add(time.Duration(cp.MaxAge) * time.Second)
		}
		j.cookies[c.Name] = &cp
	}
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// Value returns the value of the named cookie for the bound server.
func (j *Jar) Value(name string) string {
	for _, c := range j.inner.Cookies(j.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// Save writes the bound server's cookies to the jar file with 0600 mode.
func (j *Jar) Save() error {
	if j.path == "" {
		return nil
	}

	j.mu.Lock()
	stored := make([]storedCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		stored = append(stored, storedCookie{
			Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires, Secure: c.Secure, HttpOnly: c.HttpOnly,
		})
	}
	j.mu.Unlock()

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("create cookie jar dir: %w", err)
	}
	return os.WriteFile(j.path, data, 0o600)
}
