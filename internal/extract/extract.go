// Package extract turns an uploaded file into the plain text a subscription pages through.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
)

var (
	// ErrUnsupported is returned for file types no converter handles.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrInvalidDocument is returned when a file cannot be parsed as its declared type.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrEmptyDocument is returned when conversion succeeds but yields no text.
	ErrEmptyDocument = errors.New("document has no text")
)

// Document is the extracted text of an upload.
type Document struct {
	Title string
	Text  string
}

// Extractor converts raw file bytes to text.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (*Document, error)
}

// DocconvExtractor implements Extractor with sajari/docconv. EPUB containers are unpacked
// here and each spine chapter is converted as HTML.
type DocconvExtractor struct {
	readability bool
}

var _ Extractor = (*DocconvExtractor)(nil)

// NewDocconvExtractor returns an extractor. With readability set, boilerplate paragraphs are dropped.
func NewDocconvExtractor(readability bool) *DocconvExtractor {
	return &DocconvExtractor{readability: readability}
}

func (e *DocconvExtractor) Extract(ctx context.Context, filename string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	var (
		doc *Document
		err error
	)
	switch ext := strings.ToLower(path.Ext(filename)); ext {
	case ".epub":
		doc, err = e.extractEPUB(ctx, data)
	case ".txt", ".text", ".md":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidDocument)
		}
		doc = &Document{Text: string(data)}
	default:
		doc, err = e.convert(filename, data)
	}
	if err != nil {
		return nil, err
	}

	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		return nil, ErrEmptyDocument
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	}
	return doc, nil
}

func (e *DocconvExtractor) convert(filename string, data []byte) (*Document, error) {
	mimeType := docconv.MimeTypeByExtension(filename)
	if mimeType == "application/octet-stream" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path.Ext(filename))
	}
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, e.readability)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &Document{Title: res.Meta["title"], Text: res.Body}, nil
}
