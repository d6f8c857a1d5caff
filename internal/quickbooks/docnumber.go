package quickbooks

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// docNumberMax is QuickBooks's DocNumber length limit.
const docNumberMax = 21

// sourceMarker tags documents this system created; the reconciliation paths
// use it to tell our documents from ones drafted by accountants.
const sourceMarker = "RENTAL_SYS"

// PickupBulkSuffix marks a pickup invoice covering every line of an order.
const PickupBulkSuffix = "PICKUP-ALL"

var (
	nonAlnumRe      = regexp.MustCompile(`[^A-Za-z0-9]`)
	nonDigitRe      = regexp.MustCompile(`[^0-9]`)
	pickupSuffixRe  = regexp.MustCompile(`(?i)^PICKUP-(\d+)`)
	creditSuffixRe  = regexp.MustCompile(`(?i)^CM-(\d+)`)
	pickupNumberRe  = regexp.MustCompile(`(?i)PICKUP`)
	pickupCompactRe = regexp.MustCompile(`(?i)-P\d+$`)
)

// DocNumberParts identifies a document for numbering and note tagging.
type DocNumberParts struct {
	RONumber  string
	OrderID   int
	PeriodKey string
	// Suffix distinguishes documents within a period: PICKUP-<lineItemID>,
	// PICKUP-ALL, CM, CM-<lineItemID>.
	Suffix string
}

// Base returns the document-number stem: the RO number when the order has
// one, otherwise RO-<orderID>.
func (p DocNumberParts) Base() string {
	if p.RONumber != "" {
		return p.RONumber
	}
	return fmt.Sprintf("RO-%d", p.OrderID)
}

// PickupLineSuffix builds the doc-number suffix for a single-line pickup.
func PickupLineSuffix(lineItemID int) string {
	return fmt.Sprintf("PICKUP-%d", lineItemID)
}

// CreditSuffix builds the doc-number suffix for a return credit memo. A zero
// lineItemID means the credit covers the whole order.
func CreditSuffix(lineItemID int) string {
	if lineItemID > 0 {
		return fmt.Sprintf("CM-%d", lineItemID)
	}
	return "CM"
}

// BuildDocNumber composes <base>-<periodKey>-<suffix> and compacts it when it
// exceeds QuickBooks's 21-character limit. The first compaction keeps the
// number human-readable (RO<id>, digits-only period, P<n>/CM<n> suffix); if
// that still overflows, the tail becomes a 6-hex digest of the full candidate
// so the result stays deterministic for the same inputs.
func BuildDocNumber(p DocNumberParts) string {
	var sb strings.Builder
	sb.WriteString(p.Base())
	if p.PeriodKey != "" {
		sb.WriteString("-" + p.PeriodKey)
	}
	if p.Suffix != "" {
		sb.WriteString("-" + p.Suffix)
	}
	candidate := sb.String()
	if len(candidate) <= docNumberMax {
		return candidate
	}

	compactBase := fmt.Sprintf("RO%d", p.OrderID)
	parts := make([]string, 0, 3)
	parts = append(parts, compactBase)
	if period := nonDigitRe.ReplaceAllString(p.PeriodKey, ""); period != "" {
		parts = append(parts, period)
	}
	if tail := compactSuffix(p.Suffix); tail != "" {
		parts = append(parts, tail)
	}
	compact := strings.Join(parts, "-")
	if len(compact) <= docNumberMax {
		return compact
	}

	sum := sha1.Sum([]byte(candidate))
	hash := strings.ToUpper(hex.EncodeToString(sum[:])[:6])
	maxPrefix := docNumberMax - len(hash) - 1
	if maxPrefix < 1 {
		maxPrefix = 1
	}
	prefix := nonAlnumRe.ReplaceAllString(compactBase, "")
	if len(prefix) > maxPrefix {
		prefix = prefix[:maxPrefix]
	}
	return prefix + "-" + hash
}

func compactSuffix(suffix string) string {
	if suffix == "" {
		return ""
	}
	if m := pickupSuffixRe.FindStringSubmatch(suffix); m != nil {
		return "P" + m[1]
	}
	if m := creditSuffixRe.FindStringSubmatch(suffix); m != nil {
		return "CM" + m[1]
	}
	cleaned := nonAlnumRe.ReplaceAllString(suffix, "")
	if len(cleaned) > 8 {
		cleaned = cleaned[:8]
	}
	return cleaned
}

// IsPickupDocSuffix reports whether a suffix denotes a pickup document.
func IsPickupDocSuffix(suffix string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(suffix)), "PICKUP-")
}

// IsPickupDocNumber reports whether a document number looks pickup-generated,
// in either the readable or the compacted form.
func IsPickupDocNumber(docNumber string) bool {
	raw := strings.TrimSpace(docNumber)
	if raw == "" {
		return false
	}
	return pickupNumberRe.MatchString(raw) || pickupCompactRe.MatchString(raw)
}

// BuildPrivateNote composes the machine-readable correlation note:
// RO=<ro>;PERIOD=<key>;SOURCE=RENTAL_SYS plus any extra tags. The RO tag is
// the primary correlation key the sync paths look for.
func BuildPrivateNote(p DocNumberParts, extraTags ...string) string {
	ro := p.RONumber
	if ro == "" {
		ro = fmt.Sprintf("%d", p.OrderID)
	}
	pieces := []string{"RO=" + ro}
	if p.PeriodKey != "" {
		pieces = append(pieces, "PERIOD="+p.PeriodKey)
	}
	pieces = append(pieces, "SOURCE="+sourceMarker)
	for _, tag := range extraTags {
		if tag == "" {
			continue
		}
		pieces = append(pieces, tag)
	}
	return strings.Join(pieces, ";")
}
