package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"code.sajari.com/docconv"
)

const containerPath = "META-INF/container.xml"

// maxInflatedBytes caps the decompressed size of all chapters of one book. The upload limit
// only bounds the compressed archive.
var maxInflatedBytes int64 = 64 << 20

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Title    []string `xml:"metadata>title"`
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef  string `xml:"idref,attr"`
		Linear string `xml:"linear,attr"`
	} `xml:"spine>itemref"`
}

// extractEPUB reads the OPF package named by the container and converts the spine in reading order.
func (e *DocconvExtractor) extractEPUB(ctx context.Context, data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var container epubContainer
	if err := decodeXML(files, containerPath, &container); err != nil {
		return nil, err
	}
	opfPath := ""
	for _, rf := range container.Rootfiles {
		if rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml" {
			opfPath = rf.FullPath
			break
		}
	}
	if opfPath == "" {
		return nil, fmt.Errorf("%w: container lists no package document", ErrInvalidDocument)
	}

	var pkg epubPackage
	if err := decodeXML(files, opfPath, &pkg); err != nil {
		return nil, err
	}
	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefs[item.ID] = item.Href
	}
	if len(pkg.Spine) == 0 {
		return nil, fmt.Errorf("%w: empty spine", ErrInvalidDocument)
	}

	base := path.Dir(opfPath)
	budget := maxInflatedBytes
	chapters := make([]string, 0, len(pkg.Spine))
	for _, ref := range pkg.Spine {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ref.Linear == "no" {
			continue
		}
		href, ok := hrefs[ref.IDRef]
		if !ok {
			return nil, fmt.Errorf("%w: spine references unknown item %q", ErrInvalidDocument, ref.IDRef)
		}
		if unescaped, err := url.PathUnescape(href); err == nil {
			href = unescaped
		}
		text, err := e.chapterText(files, path.Join(base, href), &budget)
		if err != nil {
			return nil, err
		}
		if text != "" {
			chapters = append(chapters, text)
		}
	}

	title := ""
	if len(pkg.Title) > 0 {
		title = strings.TrimSpace(pkg.Title[0])
	}
	return &Document{Title: title, Text: strings.Join(chapters, "\n\n")}, nil
}

// chapterText converts one XHTML chapter, charging its decompressed size to budget.
func (e *DocconvExtractor) chapterText(files map[string]*zip.File, name string, budget *int64) (string, error) {
	f, ok := files[name]
	if !ok {
		return "", fmt.Errorf("%w: missing chapter %s", ErrInvalidDocument, name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrInvalidDocument, name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, *budget+1))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrInvalidDocument, name, err)
	}
	if int64(len(raw)) > *budget {
		return "", fmt.Errorf("%w: chapters expand beyond %d bytes", ErrInvalidDocument, maxInflatedBytes)
	}
	*budget -= int64(len(raw))

	text, _, err := docconv.ConvertHTML(bytes.NewReader(raw), e.readability)
	if err != nil {
		return "", fmt.Errorf("%w: convert %s: %v", ErrInvalidDocument, name, err)
	}
	return strings.TrimSpace(text), nil
}

func decodeXML(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidDocument, name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrInvalidDocument, name, err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(io.LimitReader(rc, 8<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidDocument, name, err)
	}
	return nil
}
