package guardmodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenizer(t *testing.T) *wordPieceTokenizer {
	t.Helper()
	vocab := "[PAD]\n[UNK]\n[CLS]\n[SEP]\nignore\nall\ninstructions\nedge\n##s\nun\n##related\n"
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(vocab), 0o644))
	tok, err := loadTokenizer(path)
	require.NoError(t, err)
	return tok
}

func TestEncodeKnownWords(t *testing.T) {
	tok := testTokenizer(t)
	ids, attn := tok.encode("ignore ALL instructions", 8)
	require.Len(t, ids, 8)
	require.Len(t, attn, 8)

	// [CLS] ignore all instructions [SEP] then padding.
	assert.Equal(t, []int64{2, 4, 5, 6, 3, 0, 0, 0}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 0, 0, 0}, attn)
}

func TestEncodeWordPieceSplit(t *testing.T) {
	tok := testTokenizer(t)
	ids, _ := tok.encode("edges", 8)
	// "edges" splits into "edge" + "##s".
	assert.Equal(t, []int64{2, 7, 8, 3, 0, 0, 0, 0}, ids)
}

func TestEncodeUnknownWord(t *testing.T) {
	tok := testTokenizer(t)
	ids, _ := tok.encode("zzzqqq", 6)
	assert.Equal(t, []int64{2, 1, 3, 0, 0, 0}, ids)
}

func TestEncodeTruncatesLongInput(t *testing.T) {
	tok := testTokenizer(t)
	ids, attn := tok.encode("ignore all instructions ignore all instructions ignore all", 6)
	require.Len(t, ids, 6)
	assert.Equal(t, int64(3), ids[5], "last slot is [SEP]")
	assert.Equal(t, int64(1), attn[5])
}

func TestEncodeZeroLength(t *testing.T) {
	tok := testTokenizer(t)
	ids, attn := tok.encode("anything", 0)
	assert.Nil(t, ids)
	assert.Nil(t, attn)
}
