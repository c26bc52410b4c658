package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueBlockContainsTitleAndPairs(t *testing.T) {
	result := KeyValueBlock("Token", [][2]string{
		{"Name", "Casper Test Token"},
		{"Total supply", "1000000"},
	})
	assert.Contains(t, result, "Token")
	assert.Contains(t, result, "Casper Test Token")
	assert.Contains(t, result, "Total supply")
	assert.Contains(t, result, "1000000")
}

func TestKeyValueBlockPreservesOrder(t *testing.T) {
	result := KeyValueBlock("", [][2]string{{"First", "A"}, {"Second", "B"}, {"Third", "C"}})
	i1, i2, i3 := strings.Index(result, "First"), strings.Index(result, "Second"), strings.Index(result, "Third")
	require.Greater(t, i1, -1)
	assert.Less(t, i1, i2)
	assert.Less(t, i2, i3)
}

func TestKeyValueBlockHasBorder(t *testing.T) {
	result := KeyValueBlock("Bordered", [][2]string{{"Key", "Val"}})
	assert.Contains(t, result, "╭")
	assert.Contains(t, result, "╰")
}

func TestKeyValueBlockNoPairs(t *testing.T) {
	result := KeyValueBlock("Empty", nil)
	assert.Contains(t, result, "Empty")
}

func TestFit(t *testing.T) {
	assert.Equal(t, "ab   ", fit("ab", 5))
	assert.Equal(t, "abcde", fit("abcde", 5))
	assert.Equal(t, "abcd…", fit("abcdefgh", 5))
	assert.Equal(t, "é    ", fit("é", 5), "width counts cells, not bytes")
}

func TestTableRender(t *testing.T) {
	tbl := NewTable(Column{Title: "NAME", Width: 8}, Column{Title: "PUBLIC KEY", Width: 12})
	tbl.AddRow("alice", "01aaaaaaaaaaaaaaaaaaaa")
	tbl.AddRow("bob")

	out := tbl.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "PUBLIC KEY")
	assert.Contains(t, lines[1], "--------")
	assert.Contains(t, lines[2], "alice")
	assert.Contains(t, lines[2], "01aaaaaaaaa…")
	assert.Contains(t, lines[3], "bob")
}

func TestTableRenderEmpty(t *testing.T) {
	tbl := NewTable(Column{Title: "URL", Width: 10})
	assert.Len(t, strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n"), 2)
	assert.Equal(t, -1, tbl.SelIdx)
}
