package reader

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/docstruct/constants"
)

// pdfcpuConfig skips pdfcpu's config.yml, which it would otherwise create
// under the user config dir, exiting the process if that fails.
var pdfcpuConfig = sync.OnceValue(func() *model.Configuration {
	api.DisableConfigDir()
	return model.NewDefaultConfiguration()
})

// readPDF extracts plain text page by page, prefixing each page with a
// "--- Page N ---" marker. Pages without text keep their marker and a
// placeholder so page numbering stays visible to the model.
func (r *Reader) readPDF(ctx context.Context, data []byte) (doc Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = Document{}, fmt.Errorf("%w: parse pdf: %v", ErrUnreadable, rec)
		}
	}()

	pr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: open pdf: %v", ErrUnreadable, err)
	}

	pages := pr.NumPage()
	if n, cerr := api.PageCount(bytes.NewReader(data), pdfcpuConfig()); cerr != nil {
		doc.Warnings = append(doc.Warnings, "page count check failed: "+cerr.Error())
	} else if n != pages {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("page count mismatch: text reader=%d pdfcpu=%d", pages, n))
	}
	if r.cfg.MaxPages > 0 && pages > r.cfg.MaxPages {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("truncated to %d of %d pages", r.cfg.MaxPages, pages))
		pages = r.cfg.MaxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, constants.PageMarkerFormat+"\n", i)

		page := pr.Page(i)
		if page.V.IsNull() {
			b.WriteString(constants.EmptyPageText)
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			r.logger.Warn("reader.pdf.page_error", "page", i, "error", perr)
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("page %d: %v", i, perr))
		}
		if strings.TrimSpace(text) == "" {
			b.WriteString(constants.EmptyPageText)
			continue
		}
		b.WriteString(text)
	}

	doc.Text = b.String()
	doc.Pages = pages
	for _, w := range doc.Warnings {
		r.logger.Warn("reader.pdf.warning", "warning", w)
	}
	return doc, nil
}
