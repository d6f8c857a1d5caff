package quickbooks

import (
	"regexp"
	"strings"
)

var (
	roTagRe      = regexp.MustCompile(`(?i)RO=([A-Za-z0-9-]+)`)
	bareRoRe     = regexp.MustCompile(`(?i)\bRO-[A-Za-z0-9-]+\b`)
	dateSuffixRe = regexp.MustCompile(`-\d{4}-\d{2}$`)
	periodTagRe  = regexp.MustCompile(`(?i)PERIOD=([0-9-]+)`)
	roFieldRe    = regexp.MustCompile(`(?i)^(ro\s*#|ro\s*number|rental\s*order\s*(id|#|number)?)$`)
)

// ExtractRONumber recovers the rental-order reference from a remote document.
// It tries the explicit RO= tag across note fields and the doc number first,
// then a bare RO-xxx token (with a trailing -YYYY-MM period stripped), and
// finally scans custom fields, honoring fields an accountant named as RO
// fields even when the value carries no RO- prefix. Empty string means the
// document could not be correlated.
func ExtractRONumber(doc *RemoteDocument) string {
	if doc == nil {
		return ""
	}

	candidates := make([]string, 0, 4)
	for _, v := range []string{doc.PrivateNote, doc.CustomerMemo.Value, doc.Memo, doc.DocNumber} {
		if s := strings.TrimSpace(v); s != "" {
			candidates = append(candidates, s)
		}
	}

	for _, text := range candidates {
		if m := roTagRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}

	for _, text := range candidates {
		if m := bareRoRe.FindString(text); m != "" {
			return dateSuffixRe.ReplaceAllString(m, "")
		}
	}

	for _, field := range doc.CustomField {
		value := strings.TrimSpace(field.StringValue)
		if value == "" {
			continue
		}
		if m := roTagRe.FindStringSubmatch(value); m != nil {
			return m[1]
		}
		name := strings.TrimSpace(field.Name)
		if name != "" && roFieldRe.MatchString(name) {
			if m := bareRoRe.FindString(value); m != "" {
				return m
			}
			return value
		}
	}

	return ""
}

// ExtractBillingPeriod recovers the PERIOD= tag from a document's private
// note. Empty string means the note carries no period.
func ExtractBillingPeriod(doc *RemoteDocument) string {
	if doc == nil {
		return ""
	}
	if m := periodTagRe.FindStringSubmatch(doc.PrivateNote); m != nil {
		return m[1]
	}
	return ""
}
