package auth

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRF_IssueIsValid(t *testing.T) {
	c := NewCSRF([]byte("csrf-secret"))

	tok, err := c.Issue()
	require.NoError(t, err)
	assert.True(t, c.Valid(tok))

	other, err := c.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestCSRF_ForeignSecretRejected(t *testing.T) {
	tok, err := NewCSRF([]byte("a")).Issue()
	require.NoError(t, err)

	assert.False(t, NewCSRF([]byte("b")).Valid(tok))
}

func TestCSRF_Valid_Garbage(t *testing.T) {
	c := NewCSRF([]byte("k"))
	tok, err := c.Issue()
	require.NoError(t, err)
	nonce, _, _ := strings.Cut(tok, ".")

	for _, s := range []string{"", "abc", "abc.def", nonce + ".", nonce + ".!!!", "!!!." + nonce} {
		assert.False(t, c.Valid(s), s)
	}
}

func TestCSRF_Check(t *testing.T) {
	c := NewCSRF([]byte("k"))
	tok, err := c.Issue()
	require.NoError(t, err)
	forged := strings.SplitN(tok, ".", 2)[0] + ".AAAA"

	tests := []struct {
		name   string
		cookie string
		header string
		ok     bool
	}{
		{"matching", tok, tok, true},
		{"no header", tok, "", false},
		{"no cookie", "", tok, false},
		{"header differs", tok, tok + "x", false},
		{"forged cookie echoed", forged, forged, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(tt.cookie, tt.header)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrCsrfRejected)
			}
		})
	}
}
