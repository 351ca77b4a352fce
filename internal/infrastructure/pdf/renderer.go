package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"docconsole/internal/core/domain"
)

// Renderer serves page-indexed output from a locally staged PDF. Rendering a
// page produces a single-page PDF slice; text extraction is a separate path
// for clients that want searchable content.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) PageCount(path string) (int, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, domain.WrapError(domain.ErrExternalCall, "count pdf pages", err)
	}
	return count, nil
}

// RenderPage returns the bytes of a one-page PDF holding page index (0-based).
// An index outside [0, pages-1] is a caller error, never a clamp.
func (r *Renderer) RenderPage(_ context.Context, path string, index int) ([]byte, error) {
	count, err := r.PageCount(path)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= count {
		return nil, domain.WrapError(domain.ErrPageOutOfRange, "render pdf page",
			fmt.Errorf("page %d of %d", index, count))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "open pdf", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := api.Trim(f, &buf, []string{strconv.Itoa(index + 1)}, nil); err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "render pdf page", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) PageText(_ context.Context, path string, index int) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrExternalCall, "open pdf", err)
	}
	defer f.Close()

	if index < 0 || index >= reader.NumPage() {
		return "", domain.WrapError(domain.ErrPageOutOfRange, "extract pdf text",
			fmt.Errorf("page %d of %d", index, reader.NumPage()))
	}

	page := reader.Page(index + 1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", domain.WrapError(domain.ErrExternalCall, "extract pdf text", err)
	}
	return text, nil
}
