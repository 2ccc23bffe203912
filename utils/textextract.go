package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a document yields no readable text.
var ErrNoText = errors.New("no text could be extracted")

// ExtractText returns the plain text of a document. PDFs are parsed, other
// files must already be UTF-8 text.
func ExtractText(filename string, data []byte) (string, error) {
	var text string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", fmt.Errorf("open pdf: %w", err)
		}
		plain, err := r.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("read pdf text: %w", err)
		}
		raw, err := io.ReadAll(plain)
		if err != nil {
			return "", fmt.Errorf("read pdf text: %w", err)
		}
		text = string(raw)
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: unsupported binary file", filename)
		}
		text = string(data)
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
