package journal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPositionOrg(t *testing.T) {
	t.Parallel()

	p := samplePosition(3, "2.5")
	p.RunID = "01HQZX8K4T9ABCDEF"

	result := FormatPositionOrg(p)

	assert.Contains(t, result, "** Position: BUY EUR_USD #3 (01HQZX8K)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":RUN_ID: 01HQZX8K4T9ABCDEF")
	assert.Contains(t, result, ":POSITION_ID: 3")
	assert.Contains(t, result, ":QUANTITY: 1000")
	assert.Contains(t, result, ":OPEN_PRICE: 1.085")
	assert.Contains(t, result, ":CLOSE_PRICE: 1.0875")
	assert.Contains(t, result, ":TAKE_PROFIT: 1.09")
	assert.NotContains(t, result, ":STOP_LOSS:")
	assert.Contains(t, result, ":OPEN_TIME: 2024-03-15T10:30:00Z")
	assert.Contains(t, result, ":CLOSE_TIME: 2024-03-15T14:30:00Z")
	assert.Contains(t, result, ":PROFIT_LOSS: 2.50")
	assert.Contains(t, result, ":REASON: Take Profit triggered")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Thesis")
	assert.Contains(t, result, "*** Review")
}

func TestFormatPositionsOrg(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatPositionsOrg(nil))

	out := FormatPositionsOrg([]PositionRecord{samplePosition(1, "1"), samplePosition(2, "-1")})
	assert.Equal(t, 2, strings.Count(out, "** Position:"))
	assert.Contains(t, out, "- \n\n\n** Position: BUY EUR_USD #2")
}
