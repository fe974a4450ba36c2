package anonymizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextStripsTags(t *testing.T) {
	assert.Equal(t, "SSN: 123-45-6789",
		extractText("<p>SSN: <b>123-45-6789</b></p>"))
}

func TestExtractTextDecodesEntities(t *testing.T) {
	assert.Equal(t, "Smith & Jones", extractText("Smith &amp; Jones"))
}

func TestExtractTextCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", extractText("  a \t\t b   c  "))
}

func TestExtractTextDropsScripts(t *testing.T) {
	got := extractText(`<script>alert("x")</script>visible`)
	assert.NotContains(t, got, "alert")
	assert.Contains(t, got, "visible")
}
