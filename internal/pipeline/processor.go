package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/export"
	"github.com/joseph-ayodele/docstruct/internal/llm"
	"github.com/joseph-ayodele/docstruct/internal/reader"
)

// Processor coordinates read, instruction, invoke, validate and export for
// one document at a time. It holds no per-run state and never retries.
type Processor struct {
	Logger  *slog.Logger
	Reader  *reader.Reader
	Invoker llm.Invoker
	Writer  *export.Writer
}

// Outcome is everything a successful run produced.
type Outcome struct {
	Document reader.Document
	Result   llm.Result
	Rows     []export.Row
	Coverage float64
	XLSX     []byte
}

func NewProcessor(logger *slog.Logger, rd *reader.Reader, inv llm.Invoker, w *export.Writer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Reader: rd, Invoker: inv, Writer: w}
}

// Run reads data as the document called name, extracts its records and
// renders them as a workbook. Any failure aborts the run with no partial
// Outcome.
func (p *Processor) Run(ctx context.Context, name string, data []byte) (Outcome, error) {
	ctx = ensureRequestID(ctx)
	reqID := common.RequestIDFromContext(ctx)
	start := time.Now()

	doc, err := p.Reader.Read(ctx, name, data)
	if err != nil {
		p.Logger.Error("pipeline.read.failed", "req_id", reqID, "name", name, "err", err)
		return Outcome{}, err
	}
	for _, w := range doc.Warnings {
		p.Logger.Warn("pipeline.read.warning", "req_id", reqID, "name", name, "warning", w)
	}

	res, err := p.Extract(ctx, doc.Text)
	if err != nil {
		p.Logger.Error("pipeline.run.error", "req_id", reqID, "name", name, "err", err)
		return Outcome{}, err
	}

	rows := export.Rows(res)
	xlsx, err := p.Writer.WriteXLSX(rows)
	if err != nil {
		p.Logger.Error("pipeline.export.failed", "req_id", reqID, "name", name, "err", err)
		return Outcome{}, common.WrapError(err, "export records")
	}

	out := Outcome{
		Document: doc,
		Result:   res,
		Rows:     rows,
		Coverage: Coverage(doc.Text, res),
		XLSX:     xlsx,
	}
	p.Logger.Info("pipeline.run.ok",
		"req_id", reqID,
		"name", name,
		"pages", doc.Pages,
		"records", res.Len(),
		"coverage", out.Coverage,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Extract runs the core pipeline on already-read document text.
func (p *Processor) Extract(ctx context.Context, text string) (llm.Result, error) {
	ctx = ensureRequestID(ctx)
	reqID := common.RequestIDFromContext(ctx)

	if blankDocument(text) {
		p.Logger.Warn("pipeline.extract.empty", "req_id", reqID)
		return llm.Result{}, common.ErrEmptyDocument
	}

	instruction := llm.BuildInstruction(text)
	p.Logger.Debug("pipeline.extract.instruction", "req_id", reqID, "instruction_len", len(instruction))

	raw, err := p.Invoker.Invoke(ctx, instruction)
	if err != nil {
		return llm.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		// Done after the backend answered; drop the response.
		return llm.Result{}, &llm.InvocationError{Backend: raw.Backend, Reason: llm.ClassifyTransportError(ctx, err), Err: err}
	}

	res, err := llm.Validate([]byte(raw.Text))
	if err != nil {
		p.Logger.Error("pipeline.validate.failed",
			"req_id", reqID,
			"backend", raw.Backend,
			"model", raw.Model,
			"err", err,
		)
		return llm.Result{}, err
	}

	p.Logger.Info("pipeline.extract.ok",
		"req_id", reqID,
		"backend", raw.Backend,
		"model", raw.Model,
		"records", res.Len(),
	)
	return res, nil
}

func ensureRequestID(ctx context.Context) context.Context {
	if common.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return common.WithRequestID(ctx, uuid.New().String())
}

// blankDocument reports whether text holds nothing but whitespace, page
// markers and empty-page placeholders.
func blankDocument(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" && !isReaderArtifact(line) {
			return false
		}
	}
	return true
}
