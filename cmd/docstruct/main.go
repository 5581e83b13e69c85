package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/docstruct/internal/common"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}
	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintln(os.Stderr, "Error:", usage.Error())
		os.Exit(2)
	}
	app := common.Classify(err)
	fmt.Fprintln(os.Stderr, "Error:", describe(app))
	stop()
	os.Exit(common.ExitCode(app.Code))
}

// usageError marks bad command-line input, which cobra reports before any
// pipeline work starts.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// describe renders a failure for a person at a terminal.
func describe(app *common.AppError) string {
	switch app.Code {
	case common.CodeInvocation:
		return "the model backend could not be reached or refused the request: " + detail(app)
	case common.CodeMalformed:
		return "the model returned output that is not JSON: " + detail(app)
	case common.CodeSchema:
		return "the model output does not match the Key/Value/Comment record shape: " + detail(app)
	case common.CodeRead:
		return "the document could not be read: " + detail(app)
	case common.CodeExport:
		return "the records could not be written to the workbook: " + detail(app)
	case common.CodeConfig:
		return "configuration problem: " + app.Error()
	case common.CodeCanceled:
		return "canceled"
	default:
		return app.Error()
	}
}

func detail(app *common.AppError) string {
	if app.Cause == nil {
		return app.Message
	}
	return app.Cause.Error()
}
