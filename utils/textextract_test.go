package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextPlain(t *testing.T) {
	t.Parallel()

	text, err := ExtractText("resume.txt", []byte("Ada  Lovelace\n\nStaff   Engineer\n"))
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace Staff Engineer", text)
}

func TestExtractTextErrors(t *testing.T) {
	t.Parallel()

	_, err := ExtractText("empty.txt", []byte("  \n\t"))
	assert.ErrorIs(t, err, ErrNoText)

	_, err = ExtractText("photo.bin", []byte{0xff, 0xfe, 0x00, 0x81})
	assert.Error(t, err)

	_, err = ExtractText("broken.pdf", []byte("not a pdf"))
	assert.Error(t, err)
}
