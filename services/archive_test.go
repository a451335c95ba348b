package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentKey(t *testing.T) {
	a := DocumentKey("alice", "../../etc/report.pdf")
	b := DocumentKey("alice", "report.pdf")

	assert.True(t, strings.HasPrefix(a, "uploads/alice/"))
	assert.True(t, strings.HasSuffix(a, "-report.pdf"), "only the base name is kept")
	assert.NotContains(t, a, "..")
	assert.NotEqual(t, a, b)
}
