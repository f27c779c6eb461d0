package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const placeholder = "<!-- SIGNATURE_PLACEHOLDER -->"

func TestApplySignature_ReplacesPlaceholder(t *testing.T) {
	doc := `<html><body><p>Visto</p>` + placeholder + `</body></html>`
	got := ApplySignature(doc, "data:image/png;base64,iVBORw0KGgo=", placeholder, "display: block;")

	assert.NotContains(t, got, placeholder)
	assert.Contains(t, got, `<img src="data:image/png;base64,iVBORw0KGgo=" style="display: block;">`)
}

func TestApplySignature_OnlyFirstOccurrence(t *testing.T) {
	doc := placeholder + "|" + placeholder
	got := ApplySignature(doc, "data:image/png;base64,AA==", placeholder, "")

	assert.Equal(t, `<img src="data:image/png;base64,AA==">|`+placeholder, got)
}

func TestApplySignature_NoPlaceholderOrSignatureIsNoop(t *testing.T) {
	doc := "<html><body>no marker</body></html>"
	assert.Equal(t, doc, ApplySignature(doc, "data:image/png;base64,AA==", placeholder, "x"))
	assert.Equal(t, placeholder, ApplySignature(placeholder, "", placeholder, "x"))
}

func TestSignatureImageTag_EscapesAttributes(t *testing.T) {
	got := SignatureImageTag(`x" onerror="alert(1)`, "")
	assert.Equal(t, `<img src="x&#34; onerror=&#34;alert(1)">`, got)
}
