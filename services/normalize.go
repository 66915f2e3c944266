package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mailscout/mailscout-backend/models"
)

// hostnamePattern accepts DNS-shaped hostnames: labels of 1-63 alphanumeric/hyphen
// characters, at least one dot.
var hostnamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`)

var domainCharFilter = regexp.MustCompile(`[^a-z0-9.-]`)

var repeatedDots = regexp.MustCompile(`\.{2,}`)

// nameSeparators are punctuation characters treated as spaces when splitting a
// free-text full name.
const nameSeparators = "/,._-@#$%"

var nonLetters = regexp.MustCompile(`[^a-z]`)

// NormalizeDomain converts a free-text spreadsheet value into a validated,
// lowercase hostname. Returns "" for anything that does not survive validation.
// Idempotent: feeding the output back in yields the same string.
func NormalizeDomain(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		// Full URL: take the hostname and discard path/port/query
		if u, err := url.Parse(s); err == nil && u.Hostname() != "" {
			s = u.Hostname()
		}
	} else {
		// Values like "john@example.com", "example.com/about" or "a|b": split on
		// common separators and keep the first host-like segment
		segments := strings.FieldsFunc(s, func(r rune) bool {
			switch r {
			case '@', ',', '/', '|', '\\':
				return true
			}
			return false
		})
		picked := ""
		for _, seg := range segments {
			if strings.Contains(seg, ".") {
				picked = seg
				break
			}
		}
		if picked == "" {
			return ""
		}
		s = picked
	}

	s = strings.ToLower(strings.TrimSpace(s))
	for strings.HasPrefix(s, "www.") {
		s = s[len("www."):]
	}
	s = domainCharFilter.ReplaceAllString(s, "")
	s = repeatedDots.ReplaceAllString(s, ".")
	s = strings.Trim(s, ".")

	if !hostnamePattern.MatchString(s) {
		return ""
	}
	return s
}

// cleanNameTokens lowercases a free-text name, swaps punctuation for spaces,
// and returns the letters-only tokens.
func cleanNameTokens(s string) []string {
	s = strings.TrimSpace(s)
	for _, sep := range nameSeparators {
		s = strings.ReplaceAll(s, string(sep), " ")
	}

	var out []string
	for _, t := range strings.Fields(s) {
		if c := nonLetters.ReplaceAllString(strings.ToLower(t), ""); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// SplitFullName splits a free-text name into lowercase, letters-only first and
// last parts. The first token becomes the first name, everything else joins
// into the last name.
func SplitFullName(fullName string) (first, last string) {
	tokens := cleanNameTokens(fullName)
	if len(tokens) == 0 {
		return "", ""
	}
	return tokens[0], strings.Join(tokens[1:], " ")
}

// ColumnMapping names the spreadsheet columns holding the inputs. Either
// FullName or the FirstName/LastName pair must be set, plus Domain.
type ColumnMapping struct {
	FullName  string
	FirstName string
	LastName  string
	Domain    string
}

// NormalizeRows turns raw spreadsheet rows into bulk-finder items. Rows whose
// domain fails validation, or that end up with neither name part, are dropped
// without error; the caller reports how many rows survived.
func NormalizeRows(headers []string, rows [][]string, mapping ColumnMapping) []models.FindBulkItem {
	// Header names vary between exports; index them case-insensitively
	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}

	col := func(row []string, name string) string {
		if name == "" {
			return ""
		}
		i, ok := idx[strings.TrimSpace(strings.ToLower(name))]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var items []models.FindBulkItem
	for _, row := range rows {
		domain := NormalizeDomain(col(row, mapping.Domain))
		if domain == "" {
			continue
		}

		var first, last string
		if mapping.FullName != "" {
			first, last = SplitFullName(col(row, mapping.FullName))
		} else {
			first = strings.Join(cleanNameTokens(col(row, mapping.FirstName)), "")
			last = strings.Join(cleanNameTokens(col(row, mapping.LastName)), " ")
		}
		if first == "" && last == "" {
			continue
		}

		items = append(items, models.FindBulkItem{
			Domain:    domain,
			FirstName: first,
			LastName:  last,
		})
	}
	return items
}
