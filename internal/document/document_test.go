package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"thalrakshak-assistant/internal/document/pdftest"
	"thalrakshak-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_Kind(t *testing.T) {
	cases := []struct {
		upload Upload
		want   string
	}{
		{Upload{Name: "report.pdf"}, models.AttachmentPDF},
		{Upload{Name: "REPORT.PDF"}, models.AttachmentPDF},
		{Upload{Name: "blob", Data: []byte("%PDF-1.4\n")}, models.AttachmentPDF},
		{Upload{Name: "x", ContentType: "application/pdf"}, models.AttachmentPDF},
		{Upload{Name: "scan.jpg"}, models.AttachmentImage},
		{Upload{Name: "scan", ContentType: "image/png"}, models.AttachmentImage},
		{Upload{Name: "notes.docx"}, models.AttachmentUnsupported},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.upload.Kind(), tc.upload.Name)
	}
}

func TestLimits_CheckSize(t *testing.T) {
	limits := Limits{MaxBytes: 10, MaxPages: 1}

	assert.NoError(t, limits.CheckSize(Upload{Data: make([]byte, 10)}))

	err := limits.CheckSize(Upload{Data: make([]byte, 11)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, int64(10), verr.Limit)
	assert.Equal(t, int64(11), verr.Actual)

	// 只保留开头部分的超限文件按实际大小判断
	truncated := Upload{Data: make([]byte, 11), DeclaredSize: 4096}
	assert.Equal(t, int64(4096), truncated.Size())
	require.ErrorAs(t, limits.CheckSize(truncated), &verr)
	assert.Equal(t, int64(4096), verr.Actual)
}

type pageCounter struct {
	pages int
	reads int
}

func (p *pageCounter) NumPages() int { return p.pages }
func (p *pageCounter) PageText(ctx context.Context, i int) (string, error) {
	p.reads++
	return "x", nil
}

func TestLimits_CheckPagesReadsNoPage(t *testing.T) {
	doc := &pageCounter{pages: 11}

	err := DefaultLimits.CheckPages(doc)
	assert.ErrorIs(t, err, ErrTooManyPages)
	assert.Equal(t, 0, doc.reads)

	assert.NoError(t, DefaultLimits.CheckPages(&pageCounter{pages: 10}))
}

func TestPDFReader_ExtractsText(t *testing.T) {
	data := pdftest.Build("Hemoglobin: 13.5 g/dL\nBP: 120/80 mmHg", "Pulse (resting): 72 bpm")

	doc, err := NewPDFReader().Open(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.NumPages())

	text, err := ExtractText(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, text, "Hemoglobin: 13.5 g/dL")
	assert.Contains(t, text, "120/80")
	assert.Contains(t, text, "Pulse (resting): 72 bpm")
	assert.Less(t, strings.Index(text, "Hemoglobin"), strings.Index(text, "Pulse"))
}

func TestPDFReader_PageCount(t *testing.T) {
	pages := make([]string, 11)
	for i := range pages {
		pages[i] = "page"
	}
	doc, err := NewPDFReader().Open(context.Background(), pdftest.Build(pages...))
	require.NoError(t, err)
	assert.Equal(t, 11, doc.NumPages())
	assert.ErrorIs(t, DefaultLimits.CheckPages(doc), ErrTooManyPages)
}

func TestPDFReader_Unreadable(t *testing.T) {
	valid := pdftest.Build("hello")
	for name, data := range map[string][]byte{
		"empty":     nil,
		"not pdf":   []byte("PK\x03\x04 this is a zip"),
		"truncated": valid[:len(valid)/2],
		"header":    []byte("%PDF-1.4\ngarbage"),
	} {
		_, err := NewPDFReader().Open(context.Background(), data)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, name)
		assert.ErrorIs(t, err, ErrUnreadable, name)
	}
}

func TestPDFReader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPDFReader().Open(ctx, pdftest.Build("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractText_NoText(t *testing.T) {
	doc, err := NewPDFReader().Open(context.Background(), pdftest.Build("", ""))
	require.NoError(t, err)

	_, err = ExtractText(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNoText)
}

type failingDoc struct{}

func (failingDoc) NumPages() int { return 2 }
func (failingDoc) PageText(ctx context.Context, i int) (string, error) {
	return "", errors.New("boom")
}

func TestExtractText_PropagatesPageError(t *testing.T) {
	_, err := ExtractText(context.Background(), failingDoc{})
	assert.EqualError(t, err, "boom")
}

func TestParseError_Encrypted(t *testing.T) {
	perr := &ParseError{Err: ErrUnreadable, Cause: errEncrypted}
	assert.True(t, perr.Encrypted())
	assert.Contains(t, perr.Error(), "password")
	assert.False(t, (&ParseError{Err: ErrNoText}).Encrypted())
}
