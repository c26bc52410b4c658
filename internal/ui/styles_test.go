package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormattersKeepMessage(t *testing.T) {
	cases := map[string]struct {
		fn     func(string) string
		prefix string
	}{
		"success": {Success, "✓"},
		"warn":    {Warn, "⚠"},
		"err":     {Err, "✗"},
		"info":    {Info, "ℹ"},
		"hint":    {Hint, "→"},
	}
	for name, c := range cases {
		out := c.fn("deploy sent")
		assert.Contains(t, out, c.prefix, name)
		assert.Contains(t, out, "deploy sent", name)
	}
	assert.Contains(t, Addr("hash-ab"), "hash-ab")
	assert.Contains(t, Val("42"), "42")
	assert.Contains(t, Meta("dim"), "dim")
}

func TestTruncateHash(t *testing.T) {
	assert.Equal(t, "", TruncateHash(""))
	assert.Equal(t, "0abc", TruncateHash("0abc"))
	assert.Equal(t, "4da85c…bc63",
		TruncateHash("4da85cd5d0e3a0d39c2f6a8e1f6a7c4e8b1a0c9d2e3f4a5b6c7d8e9f0a1bbc63"))
	assert.Equal(t, "account-hash-4da85c…bc63",
		TruncateHash("account-hash-4da85cd5d0e3a0d39c2f6a8e1f6a7c4e8b1a0c9d2e3f4a5b6c7d8e9f0a1bbc63"))
	assert.Equal(t, "hash-abcdef…7890", TruncateHash("hash-abcdef1234567890"))
}

func TestBanner(t *testing.T) {
	b := Banner("0.3.0")
	assert.Contains(t, b, "casper-erc20")
	assert.Contains(t, b, "v0.3.0")
}
