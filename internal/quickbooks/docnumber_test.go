package quickbooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDocNumber(t *testing.T) {
	t.Run("short numbers pass through readable", func(t *testing.T) {
		got := BuildDocNumber(DocNumberParts{RONumber: "RO-1042", OrderID: 1042, PeriodKey: "2024-03"})
		assert.Equal(t, "RO-1042-2024-03", got)
	})

	t.Run("credit suffix stays readable", func(t *testing.T) {
		got := BuildDocNumber(DocNumberParts{RONumber: "RO-1042", OrderID: 1042, PeriodKey: "2024-03", Suffix: "CM"})
		assert.Equal(t, "RO-1042-2024-03-CM", got)
	})

	t.Run("overflow compacts to digits-only period and short suffix", func(t *testing.T) {
		got := BuildDocNumber(DocNumberParts{
			RONumber:  "RO-1042",
			OrderID:   1042,
			PeriodKey: "2024-03",
			Suffix:    "PICKUP-7",
		})
		assert.Equal(t, "RO1042-202403-P7", got)
	})

	t.Run("compacted credit-line suffix", func(t *testing.T) {
		got := BuildDocNumber(DocNumberParts{
			RONumber:  "RO-1042",
			OrderID:   1042,
			PeriodKey: "2024-03-15",
			Suffix:    "CM-12",
		})
		assert.Equal(t, "RO1042-20240315-CM12", got)
	})

	t.Run("missing ro number falls back to order id", func(t *testing.T) {
		got := BuildDocNumber(DocNumberParts{OrderID: 88, PeriodKey: "2024-03"})
		assert.Equal(t, "RO-88-2024-03", got)
	})

	t.Run("extreme overflow hashes deterministically", func(t *testing.T) {
		parts := DocNumberParts{
			RONumber:  "RO-LONGCUSTOMNUMBER-99887",
			OrderID:   99887,
			PeriodKey: "2024-03-15",
			Suffix:    "PICKUP-123456789",
		}
		first := BuildDocNumber(parts)
		second := BuildDocNumber(parts)

		assert.Equal(t, first, second)
		assert.LessOrEqual(t, len(first), 21)
		assert.Regexp(t, `^RO99887-[0-9A-F]{6}$`, first)

		parts.Suffix = "PICKUP-987654321"
		assert.NotEqual(t, first, BuildDocNumber(parts))
	})
}

func TestBuildPrivateNote(t *testing.T) {
	t.Run("standard tags", func(t *testing.T) {
		got := BuildPrivateNote(DocNumberParts{RONumber: "RO-1042", OrderID: 1042, PeriodKey: "2024-03"})
		assert.Equal(t, "RO=RO-1042;PERIOD=2024-03;SOURCE=RENTAL_SYS", got)
	})

	t.Run("order id stands in for a missing ro number", func(t *testing.T) {
		got := BuildPrivateNote(DocNumberParts{OrderID: 88})
		assert.Equal(t, "RO=88;SOURCE=RENTAL_SYS", got)
	})

	t.Run("extra tags append after the source marker", func(t *testing.T) {
		got := BuildPrivateNote(
			DocNumberParts{RONumber: "RO-1042", OrderID: 1042, PeriodKey: "2024-03"},
			"LINEITEMS=7,9", "", "OTHER_PICKUP_INVOICES=RO1042-202403-P7",
		)
		assert.Equal(t,
			"RO=RO-1042;PERIOD=2024-03;SOURCE=RENTAL_SYS;LINEITEMS=7,9;OTHER_PICKUP_INVOICES=RO1042-202403-P7",
			got)
	})
}

func TestPickupDocHelpers(t *testing.T) {
	assert.Equal(t, "PICKUP-7", PickupLineSuffix(7))
	assert.Equal(t, "CM-12", CreditSuffix(12))
	assert.Equal(t, "CM", CreditSuffix(0))

	assert.True(t, IsPickupDocSuffix("PICKUP-7"))
	assert.True(t, IsPickupDocSuffix(" pickup-all "))
	assert.False(t, IsPickupDocSuffix("CM-7"))

	assert.True(t, IsPickupDocNumber("RO-1042-2024-03-PICKUP-7"))
	assert.True(t, IsPickupDocNumber("RO1042-202403-P7"))
	assert.False(t, IsPickupDocNumber("RO-1042-2024-03"))
	assert.False(t, IsPickupDocNumber(""))
}
