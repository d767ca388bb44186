package models

import (
	"net/url"
	"strings"
)

// QueryString joins the non-empty pairs in field order with standard query
// escaping.
func (p QueryParameters) QueryString() string {
	var b strings.Builder
	for i, kv := range p.Pairs() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// ComposeURL appends the query string to baseURL.
func (p QueryParameters) ComposeURL(baseURL string) string {
	return baseURL + "?" + p.QueryString()
}

// PreviewText renders the flattened parameters followed by the composed URL,
// the two-part text shown before a query is executed.
func (p QueryParameters) PreviewText(baseURL string) string {
	var b strings.Builder
	b.WriteString("Selected parameters:\n")
	b.WriteString(p.formatPairs())
	b.WriteString("\n\nExample REST query URL:\n")
	b.WriteString(p.ComposeURL(baseURL))
	return b.String()
}

func (p QueryParameters) formatPairs() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, kv := range p.Pairs() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(kv.Key))
		b.WriteString(": ")
		b.WriteString(quote(kv.Value))
	}
	b.WriteByte('}')
	return b.String()
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}
