package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\r\n\tb \x00 c\n"))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}

func TestSameHost(t *testing.T) {
	assert.True(t, SameHost("WWW.Ex.com", "ex.com"))
	assert.True(t, SameHost("ex.com", "www.ex.com"))
	assert.False(t, SameHost("ex.com.evil.org", "ex.com"))
	assert.False(t, SameHost("", ""))
}

func TestToAbsoluteURL(t *testing.T) {
	base, err := url.Parse("https://ex.com/blog/")
	require.NoError(t, err)

	abs, err := ToAbsoluteURL(base, "post/")
	require.NoError(t, err)
	assert.Equal(t, "https://ex.com/blog/post/", abs)

	abs, err = ToAbsoluteURL(base, "/about")
	require.NoError(t, err)
	assert.Equal(t, "https://ex.com/about", abs)

	_, err = ToAbsoluteURL(base, "%zz")
	assert.Error(t, err)
}

func TestTrimOrigin(t *testing.T) {
	assert.Equal(t, "https://ex.com", TrimOrigin(" https://ex.com// "))
}
