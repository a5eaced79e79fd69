package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testPackage = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Whale</dc:title>
  </metadata>
  <manifest>
    <item id="c2" href="text/chapter%202.xhtml" media-type="application/xhtml+xml"/>
    <item id="c1" href="text/chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="c1"/>
    <itemref idref="c2"/>
    <itemref idref="nav" linear="no"/>
  </spine>
</package>`

func chapter(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><html xmlns="http://www.w3.org/1999/xhtml"><head><title>x</title></head><body><p>` +
		body + `</p></body></html>`
}

func buildEPUB(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func validEPUB(t *testing.T) []byte {
	return buildEPUB(t, map[string]string{
		"mimetype":                   "application/epub+zip",
		containerPath:                testContainer,
		"OEBPS/content.opf":          testPackage,
		"OEBPS/text/chapter1.xhtml":  chapter("Call me Ishmael. Some years ago, never mind how long precisely, I went to sea."),
		"OEBPS/text/chapter 2.xhtml": chapter("There now is your insular city of the Manhattoes, belted round by wharves."),
		"OEBPS/nav.xhtml":            chapter("Table of contents that should never be delivered to a reader."),
	})
}

func TestExtract_EPUB(t *testing.T) {
	e := NewDocconvExtractor(false)

	doc, err := e.Extract(context.Background(), "moby.epub", validEPUB(t))

	require.NoError(t, err)
	assert.Equal(t, "The Whale", doc.Title)
	first := strings.Index(doc.Text, "Call me Ishmael")
	second := strings.Index(doc.Text, "insular city")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first, "spine order must be preserved")
	assert.NotContains(t, doc.Text, "Table of contents")
}

func TestExtract_EPUBErrors(t *testing.T) {
	e := NewDocconvExtractor(false)
	ctx := context.Background()

	tests := []struct {
		name  string
		files map[string]string
	}{
		{name: "no container", files: map[string]string{"OEBPS/content.opf": testPackage}},
		{name: "missing package", files: map[string]string{containerPath: testContainer}},
		{name: "missing chapter", files: map[string]string{containerPath: testContainer, "OEBPS/content.opf": testPackage}},
		{name: "empty spine", files: map[string]string{
			containerPath:       testContainer,
			"OEBPS/content.opf": `<package><metadata/><manifest/><spine/></package>`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := e.Extract(ctx, "book.epub", buildEPUB(t, tt.files))
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}

	t.Run("not a zip", func(t *testing.T) {
		_, err := e.Extract(ctx, "book.epub", []byte("definitely not a zip"))
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})
}

func TestExtract_EPUBInflationLimit(t *testing.T) {
	prev := maxInflatedBytes
	maxInflatedBytes = 64 << 10
	t.Cleanup(func() { maxInflatedBytes = prev })

	data := buildEPUB(t, map[string]string{
		containerPath:                testContainer,
		"OEBPS/content.opf":          testPackage,
		"OEBPS/text/chapter1.xhtml":  chapter(strings.Repeat("a", 1<<20)),
		"OEBPS/text/chapter 2.xhtml": chapter("short"),
	})
	require.Less(t, len(data), int(maxInflatedBytes), "archive must compress well below the limit")

	doc, err := NewDocconvExtractor(false).Extract(context.Background(), "bomb.epub", data)

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.ErrorContains(t, err, "expand beyond")
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDocconvExtractor(false).Extract(ctx, "moby.epub", validEPUB(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_PlainText(t *testing.T) {
	e := NewDocconvExtractor(false)

	doc, err := e.Extract(context.Background(), "notes/Daily Notes.txt", []byte("  hello world\n"))
	require.NoError(t, err)
	assert.Equal(t, "Daily Notes", doc.Title)
	assert.Equal(t, "hello world", doc.Text)

	_, err = e.Extract(context.Background(), "blank.txt", []byte(" \n\t "))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = e.Extract(context.Background(), "bad.txt", []byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := NewDocconvExtractor(false).Extract(context.Background(), "archive.bin", []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewDocconvExtractor(false).Extract(context.Background(), "empty.epub", nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}
