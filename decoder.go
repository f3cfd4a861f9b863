package tendercrawler

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/flate"
	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/unicode"
)

const (
	mimeCompoundFile = "application/x-ole-storage"
	mimeZip          = "application/zip"

	previewStream     = "PrvText"
	bodySectionPrefix = "BodyText/Section"
	minScanRunLength  = 4
)

var (
	supportedDocumentExtensions = []string{".hwp", ".hwpx"}

	scanRunPattern = regexp.MustCompile(`[\x{AC00}-\x{D7A3}\w\s.,\-:;()\[\]%]+`)
	hwpxSection    = regexp.MustCompile(`^Contents/section(\d+)\.xml$`)

	errNotContainer = errors.New("not a compound file")
)

// DocumentDecoder turns HWP attachments into plain text on a best effort basis.
type DocumentDecoder struct {
	logger Logger
}

func NewDocumentDecoder(logger Logger) *DocumentDecoder {
	if logger == nil {
		logger = newNopLogger()
	}
	return &DocumentDecoder{logger: logger}
}

// Decode rejects unknown extensions, then decodes doc.Data.
func (d *DocumentDecoder) Decode(doc RawDocument) (string, error) {
	if !IsSupportedDocument(doc.Name) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocumentType, doc.Name)
	}
	return d.DecodeBytes(doc.Data), nil
}

func IsSupportedDocument(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range supportedDocumentExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// decodeStrategy returns ok=false when it does not apply to the input.
type decodeStrategy struct {
	name   string
	decode func(in *decodeInput) (text string, ok bool)
}

type decodeInput struct {
	data     []byte
	compound *compoundFile
	err      error
	opened   bool
}

func (in *decodeInput) container() (*compoundFile, error) {
	if !in.opened {
		in.compound, in.err = openCompoundFile(in.data)
		in.opened = true
	}
	return in.compound, in.err
}

var decodeStrategies = []decodeStrategy{
	{name: "preview text", decode: decodePreviewText},
	{name: "body sections", decode: decodeBodySections},
	{name: "hwpx sections", decode: decodeHwpxSections},
	{name: "binary scan", decode: decodeBinaryScan},
}

// DecodeBytes never fails. Strategies run in order and the first one that
// applies wins. A strategy that panics is logged and skipped.
func (d *DocumentDecoder) DecodeBytes(data []byte) string {
	in := &decodeInput{data: data}
	for _, s := range decodeStrategies {
		text, ok := d.run(s, in)
		if ok {
			return cleanText(text)
		}
	}
	return ""
}

func (d *DocumentDecoder) run(s decodeStrategy, in *decodeInput) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("Decode degraded: %s strategy failed: %v", s.name, r)
			text, ok = "", false
		}
	}()
	return s.decode(in)
}

func decodePreviewText(in *decodeInput) (string, bool) {
	cf, err := in.container()
	if err != nil {
		return "", false
	}
	data, found := cf.streams[previewStream]
	if !found {
		return "", false
	}
	return decodeUTF16LE(data), true
}

// decodeBodySections inflates each BodyText section ordered by stream name,
// so Section10 sorts before Section2. Sections that fail to inflate are skipped.
func decodeBodySections(in *decodeInput) (string, bool) {
	cf, err := in.container()
	if err != nil {
		return "", false
	}

	type section struct {
		name string
		data []byte
	}
	var sections []section
	for name, data := range cf.streams {
		if !strings.HasPrefix(name, bodySectionPrefix) {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimPrefix(name, bodySectionPrefix)); err != nil {
			continue
		}
		sections = append(sections, section{name: name, data: data})
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].name < sections[j].name })

	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		raw, err := inflateRaw(s.data)
		if err != nil {
			continue
		}
		parts = append(parts, decodeUTF16LE(raw))
	}
	return strings.Join(parts, "\n"), true
}

// decodeHwpxSections reads the text runs of an HWPX (zip) package.
func decodeHwpxSections(in *decodeInput) (string, bool) {
	if !detectedAs(in.data, mimeZip) {
		return "", false
	}
	zr, err := zip.NewReader(bytes.NewReader(in.data), int64(len(in.data)))
	if err != nil {
		return "", false
	}

	type section struct {
		index int
		file  *zip.File
	}
	var sections []section
	for _, f := range zr.File {
		m := hwpxSection.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		sections = append(sections, section{index: idx, file: f})
	}
	if len(sections) == 0 {
		return "", false
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].index < sections[j].index })

	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		text, err := hwpxSectionText(s.file)
		if err != nil {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), true
}

func hwpxSectionText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var sb strings.Builder
	inText := false
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sb.String(), err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// decodeBinaryScan keeps readable runs of the bytes read as UTF-16LE.
func decodeBinaryScan(in *decodeInput) (string, bool) {
	decoded := decodeUTF16LE(in.data)
	var runs []string
	for _, m := range scanRunPattern.FindAllString(decoded, -1) {
		if len([]rune(m)) < minScanRunLength || strings.TrimSpace(m) == "" {
			continue
		}
		runs = append(runs, m)
	}
	return strings.Join(runs, " "), true
}

type compoundFile struct {
	streams map[string][]byte
}

func openCompoundFile(data []byte) (*compoundFile, error) {
	if !detectedAs(data, mimeCompoundFile) {
		return nil, errNotContainer
	}
	r, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errNotContainer, err)
	}

	cf := &compoundFile{streams: make(map[string][]byte)}
	limit := int64(len(data))
	for entry, err := r.Next(); err == nil; entry, err = r.Next() {
		// A stream can never be larger than the file holding it.
		if entry.Size <= 0 || entry.Size > limit {
			continue
		}
		buf, err := io.ReadAll(io.LimitReader(entry, entry.Size))
		if err != nil && len(buf) == 0 {
			continue
		}
		name := strings.Join(append(append([]string{}, entry.Path...), entry.Name), "/")
		cf.streams[name] = buf
	}
	return cf, nil
}

// detectedAs walks the detected type and its parents looking for mime.
func detectedAs(data []byte, mime string) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is(mime) {
			return true
		}
	}
	return false
}

func inflateRaw(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

func decodeUTF16LE(data []byte) string {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return ""
	}
	return string(out)
}

func cleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 || r == '\uFFFD' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
