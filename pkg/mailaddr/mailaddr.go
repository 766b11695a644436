// Package mailaddr parses the loosely structured address strings accepted by
// the messages API. Inputs arrive either as a single comma-separated string
// or as repeated form fields, and individual entries may be bare addresses
// ("john@example.com") or RFC 5322-ish display-name forms
// ("John Doe <john@example.com>", with optional quoting and escaping).
//
// The parsing here is deliberately heuristic. It is used to split recipients
// for delivery fan-out and to populate per-recipient template variables,
// never for authentication or routing decisions.
package mailaddr

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Address is a parsed recipient: a bare email plus an optional display name.
type Address struct {
	Email string
	Name  string
}

// String formats the address back into "Name <email>" form, or just the
// email when no name is set.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

var localPartReplacer = strings.NewReplacer(".", " ", "_", " ", "-", " ")

var titleCaser = cases.Title(language.English)

// Parse extracts the email and display name from a single address string.
// For "Name <email>" forms the email comes from inside the angle brackets and
// the name from the prefix, with one level of surrounding quotes and one level
// of backslash escaping removed. A string without angle brackets is treated as
// a bare email with no name.
func Parse(s string) Address {
	s = strings.TrimSpace(s)

	open := strings.IndexByte(s, '<')
	end := strings.LastIndexByte(s, '>')
	if open < 0 || end < open {
		return Address{Email: s}
	}

	email := strings.TrimSpace(s[open+1 : end])
	name := strings.TrimSpace(s[:open])
	name = trimQuotes(name)
	name = stripEscapes(name)
	name = trimQuotes(name)

	return Address{Email: email, Name: name}
}

// ParseList splits a comma-separated recipient string into parsed addresses.
// Segments are trimmed and empty segments are dropped.
func ParseList(s string) []Address {
	var addrs []Address
	for seg := range strings.SplitSeq(s, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		addrs = append(addrs, Parse(seg))
	}
	return addrs
}

// Normalize collapses recipient form values into one canonical
// comma-separated string. A request may carry a single comma-separated value
// or repeated fields with one address each; either way the result is the
// trimmed entries rejoined with commas, used everywhere downstream.
func Normalize(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return strings.TrimSpace(values[0])
	}
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}
	return strings.Join(trimmed, ",")
}

// ExtractEmail returns the bare email from a single address string.
func ExtractEmail(s string) string {
	return Parse(s).Email
}

// ExtractEmails applies ExtractEmail to each entry of a comma-separated
// address string and rejoins the results with ", ".
func ExtractEmails(s string) string {
	addrs := ParseList(s)
	emails := make([]string, len(addrs))
	for i, a := range addrs {
		emails[i] = a.Email
	}
	return strings.Join(emails, ", ")
}

// DisplayName returns the display name for an address string. When no name is
// supplied, one is synthesized from the email's local part: separators become
// spaces and each word is title-cased ("jane.doe" -> "Jane Doe"). The result
// feeds per-recipient template variables only.
func DisplayName(s string) string {
	addr := Parse(s)
	if addr.Name != "" {
		return addr.Name
	}
	local, _, _ := strings.Cut(addr.Email, "@")
	return titleCaser.String(localPartReplacer.Replace(local))
}

// SplitName splits a full display name into first and last parts. The first
// word is the first name, everything else is the last name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// stripEscapes removes one level of backslash escaping ("\"Jane\"" -> "Jane"
// after the outer quotes are trimmed again).
func stripEscapes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
