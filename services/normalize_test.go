package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain domain", "example.com", "example.com"},
		{"uppercase URL with path", "https://Example.com/path", "example.com"},
		{"scheme with port", "http://example.com:8080/x", "example.com"},
		{"www prefix", "www.example.com", "example.com"},
		{"stacked www prefixes", "www.www.example.com", "example.com"},
		{"quoted", `"example.com"`, "example.com"},
		{"backticks", "`example.com`", "example.com"},
		{"surrounding whitespace", "  example.com  ", "example.com"},
		{"email address", "john@example.com", "example.com"},
		{"comma separated", "foo,example.com", "example.com"},
		{"pipe separated", "junk|example.co.uk", "example.co.uk"},
		{"backslash separated", `x\example.com`, "example.com"},
		{"repeated dots", "example..com", "example.com"},
		{"mixed junk characters", "Exa mple!.com", "example.com"},
		{"subdomain kept", "mail.example.com", "mail.example.com"},
		{"deep subdomain", "a.b.example.com", "a.b.example.com"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"no dot", "localhost", ""},
		{"no alphanumeric label", "...", ""},
		{"just punctuation", "@/|", ""},
		{"hyphen label", "my-site.io", "my-site.io"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDomain(tc.in))
		})
	}
}

func TestNormalizeDomainIdempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com/path",
		"www.example.com",
		"www.www.example.com",
		"john@example.com",
		"example..com",
		"EXAMPLE.COM",
		"not a domain at all",
		"",
		"my-site.io",
	}
	for _, in := range inputs {
		once := NormalizeDomain(in)
		assert.Equal(t, once, NormalizeDomain(once), "input %q", in)
	}
}

func TestSplitFullName(t *testing.T) {
	cases := []struct {
		in    string
		first string
		last  string
	}{
		{"John Doe", "john", "doe"},
		{"  John   Doe  ", "john", "doe"},
		{"John", "john", ""},
		{"John Michael Doe", "john", "michael doe"},
		{"john.doe", "john", "doe"},
		{"o'brien, mary", "obrien", "mary"},
		{"jean-pierre dupont", "jean", "pierre dupont"},
		{"J0hn D03", "jhn", "d"},
		{"", "", ""},
		{"123 456", "", ""},
	}

	for _, tc := range cases {
		first, last := SplitFullName(tc.in)
		assert.Equal(t, tc.first, first, "input %q", tc.in)
		assert.Equal(t, tc.last, last, "input %q", tc.in)
	}
}

func TestNormalizeRows(t *testing.T) {
	headers := []string{"Full Name", "Website", "Notes"}
	rows := [][]string{
		{"John Doe", "https://Example.com/path", "keep"},
		{"Jane Roe", "acme.io", "keep"},
		{"", "example.com", "dropped: no name"},
		{"No Domain", "", "dropped: empty domain"},
		{"Bad Domain", "not a domain", "dropped: invalid domain"},
		{"123 456", "ok.com", "dropped: names strip to nothing"},
	}

	items := NormalizeRows(headers, rows, ColumnMapping{FullName: "Full Name", Domain: "Website"})
	require.Len(t, items, 2)

	assert.Equal(t, "example.com", items[0].Domain)
	assert.Equal(t, "john", items[0].FirstName)
	assert.Equal(t, "doe", items[0].LastName)

	assert.Equal(t, "acme.io", items[1].Domain)
	assert.Equal(t, "jane", items[1].FirstName)
	assert.Equal(t, "roe", items[1].LastName)

	// Every surviving item honours the batcher's precondition
	for _, item := range items {
		assert.NotEmpty(t, item.Domain)
		assert.True(t, item.FirstName != "" || item.LastName != "")
	}
}

func TestNormalizeRowsSplitColumns(t *testing.T) {
	headers := []string{"first", "last", "domain"}
	rows := [][]string{
		{"John", "Doe", "example.com"},
		{"", "Solo", "example.com"},
		{"", "", "example.com"},
	}

	items := NormalizeRows(headers, rows, ColumnMapping{FirstName: "first", LastName: "last", Domain: "domain"})
	require.Len(t, items, 2)
	assert.Equal(t, "john", items[0].FirstName)
	assert.Equal(t, "doe", items[0].LastName)
	assert.Equal(t, "", items[1].FirstName)
	assert.Equal(t, "solo", items[1].LastName)
}
