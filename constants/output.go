package constants

const (
	// DefaultOutputFile is the workbook name used when the caller does not pick one.
	DefaultOutputFile = "Expected_Output_Structured_Data.xlsx"
	// DefaultSheet is the worksheet that receives the extracted rows.
	DefaultSheet = "Extracted Data"

	// PreviewChars is how much extracted text the preview shows.
	PreviewChars = 500

	// PageMarkerFormat separates pages in reader output; the argument is 1-based.
	PageMarkerFormat = "--- Page %d ---"
	// EmptyPageText stands in for a page with no extractable text.
	EmptyPageText = "(No readable text on this page)"
)

// Backends a run can be configured with.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)
