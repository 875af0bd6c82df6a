package session

import "strings"

const maxTitleRunes = 50

// DeriveTitle joins prefix with the first words of text and hard-cuts the
// result to 50 characters.
func DeriveTitle(prefix, text string, words int) string {
	fields := strings.Fields(text)
	if words >= 0 && len(fields) > words {
		fields = fields[:words]
	}
	return truncateRunes(prefix+strings.Join(fields, " "), maxTitleRunes)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
