package domain

import (
	"html"
	"strings"
)

// ApplySignature replaces the first occurrence of placeholder in doc with an
// inline <img> showing signature. An empty signature or a document without the
// placeholder leaves doc unchanged.
func ApplySignature(doc, signature, placeholder, style string) string {
	if signature == "" || placeholder == "" {
		return doc
	}
	if !strings.Contains(doc, placeholder) {
		return doc
	}
	return strings.Replace(doc, placeholder, SignatureImageTag(signature, style), 1)
}

// SignatureImageTag builds the tag substituted for the placeholder.
func SignatureImageTag(signature, style string) string {
	var b strings.Builder
	b.WriteString(`<img src="`)
	b.WriteString(html.EscapeString(signature))
	b.WriteString(`"`)
	if style != "" {
		b.WriteString(` style="`)
		b.WriteString(html.EscapeString(style))
		b.WriteString(`"`)
	}
	b.WriteString(`>`)
	return b.String()
}
