package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Reader 文档解码
type Reader interface {
	Open(ctx context.Context, data []byte) (Document, error)
}

// Document 已解码的文档；页码从 1 开始
type Document interface {
	NumPages() int
	PageText(ctx context.Context, page int) (string, error)
}

var errEncrypted = errors.New("document is password protected")

// PDFReader 基于 ledongthuc/pdf 的 Reader
type PDFReader struct{}

// NewPDFReader 创建 PDF 解码器
func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

// Open 解码 PDF；加密、损坏、非 PDF 均返回 *ParseError(ErrUnreadable)
func (PDFReader) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, &ParseError{Err: ErrUnreadable, Cause: errors.New("missing PDF header")}
	}

	var r *pdf.Reader
	err := safely(func() error {
		var openErr error
		r, openErr = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		return openErr
	})
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(err.Error(), "encrypt") {
			err = errEncrypted
		}
		return nil, &ParseError{Err: ErrUnreadable, Cause: err}
	}

	var pages int
	if err := safely(func() error {
		pages = r.NumPage()
		return nil
	}); err != nil {
		return nil, &ParseError{Err: ErrUnreadable, Cause: err}
	}
	return &pdfDocument{reader: r, pages: pages}, nil
}

type pdfDocument struct {
	reader *pdf.Reader
	pages  int
}

func (d *pdfDocument) NumPages() int {
	return d.pages
}

func (d *pdfDocument) PageText(ctx context.Context, page int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if page < 1 || page > d.pages {
		return "", fmt.Errorf("page %d out of range 1..%d", page, d.pages)
	}

	var text string
	err := safely(func() error {
		p := d.reader.Page(page)
		if p.V.IsNull() {
			return nil
		}
		var textErr error
		text, textErr = p.GetPlainText(nil)
		return textErr
	})
	if err != nil {
		return "", &ParseError{Err: ErrUnreadable, Cause: err}
	}
	return text, nil
}

// safely 解码库在畸形输入上会 panic，这里转为 error
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	return fn()
}

// ExtractText 按页顺序提取全文；全部为空白时返回 *ParseError(ErrNoText)
func ExtractText(ctx context.Context, doc Document) (string, error) {
	var b strings.Builder
	for i := 1; i <= doc.NumPages(); i++ {
		text, err := doc.PageText(ctx, i)
		if err != nil {
			return "", err
		}
		if i > 1 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}

	out := b.String()
	if strings.TrimSpace(out) == "" {
		return "", &ParseError{Err: ErrNoText}
	}
	return out, nil
}
