package constants

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapExtToFormat(t *testing.T) {
	assert.Equal(t, PDF, MapExtToFormat(".pdf"))
	assert.Equal(t, PDF, MapExtToFormat("PDF"))
	assert.Equal(t, TEXT, MapExtToFormat(".Md"))
	assert.Equal(t, "", MapExtToFormat(".docx"))
	assert.Equal(t, "", MapExtToFormat(""))
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{"md", "pdf", "text", "txt"}, SupportedExtensions())
}

func TestPageMarkerFormat(t *testing.T) {
	assert.Equal(t, "--- Page 3 ---", fmt.Sprintf(PageMarkerFormat, 3))
}
