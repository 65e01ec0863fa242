package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pdfHead = []byte("%PDF-1.7\n%âãÏÓ\n1 0 obj")
	pngHead = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	zipHead = []byte("PK\x03\x04\x14\x00\x06\x00")
)

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		file     string
		size     int64
		head     []byte
		wantMIME string
		wantErr  string
	}{
		{"pdf", "Syllabus.PDF", 100, pdfHead, "application/pdf", ""},
		{"png", "diagram.png", 100, pngHead, "image/png", ""},
		{"docx is zip", "notes.docx", 100, zipHead, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ""},
		{"markdown", "README.md", 10, []byte("# Title\n"), "text/markdown", ""},
		{"empty", "a.pdf", 0, pdfHead, "", "empty"},
		{"too big", "a.pdf", 2048, pdfHead, "", "exceeds"},
		{"exe", "setup.exe", 100, []byte("MZ\x90\x00"), "", "not allowed"},
		{"disguised", "photo.png", 100, pdfHead, "", "does not match"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mime, err := Validate(tt.file, tt.size, 1024, tt.head)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, mime)
		})
	}
}

func TestSanitizeNameAndObjectKey(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeName("../../etc/passwd"))
	assert.Equal(t, "my_notes_v2.pdf", SanitizeName(`C:\Users\me\my notes v2.pdf`))
	assert.Equal(t, "file", SanitizeName("..."))
	assert.Len(t, SanitizeName(strings.Repeat("a", 300)+".pdf"), 100)
	assert.True(t, strings.HasSuffix(SanitizeName(strings.Repeat("a", 300)+".pdf"), "a.pdf"))

	longExt := SanitizeName("a." + strings.Repeat("x", 150))
	assert.Len(t, longExt, 100)
	assert.True(t, strings.HasPrefix(longExt, "a.x"), longExt)

	key := ObjectKey(12, "Week 1.pdf")
	assert.True(t, strings.HasPrefix(key, "courses/12/"), key)
	assert.True(t, strings.HasSuffix(key, "-Week_1.pdf"), key)
	assert.NotEqual(t, key, ObjectKey(12, "Week 1.pdf"))
}

func TestMemory_RejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("http://cdn.local/materials")

	url, err := m.Put(ctx, "courses/1/a b.pdf", bytes.NewReader([]byte("x")), 1, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/materials/courses/1/a%20b.pdf", url)

	_, err = m.Put(ctx, "courses/1/a b.pdf", bytes.NewReader([]byte("y")), 1, "application/pdf")
	assert.ErrorIs(t, err, ErrObjectExists)
	assert.Equal(t, []byte("x"), m.Objects["courses/1/a b.pdf"])
}
