package queue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLineOrderEvent(t *testing.T) {
	actor := uint64(7)
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	ev, err := NewEvent(OrderCancelled, at, &actor, OrderEvent{
		OrderID: 12, UserID: 3, OldStatus: "pending", Status: "cancelled",
		TotalAmount: decimal.RequireFromString("30"),
		Lines:       []OrderLineEvent{{ProductID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("10")}},
	})
	require.NoError(t, err)

	line, err := FormatLine(ev)
	require.NoError(t, err)
	assert.Equal(t,
		"[2024-06-03T10:00:00Z] order.cancelled | actor=7 | order_id=12 | user_id=3 | status=pending->cancelled | total=30.00 | lines=1\n",
		line)
}

func TestFormatLineSystemActorAndUnknownType(t *testing.T) {
	ev, err := NewEvent("product.touched", time.Unix(0, 0), nil, map[string]int{"id": 1})
	require.NoError(t, err)

	line, err := FormatLine(ev)
	require.NoError(t, err)
	assert.Contains(t, line, "actor=system")
	assert.Contains(t, line, `payload={"id":1}`)
}

func TestFormatLineRejectsBadPayload(t *testing.T) {
	_, err := FormatLine(Event{Type: ReturnProcessed, Payload: []byte(`"nope"`)})
	assert.Error(t, err)
}

func TestAppendLineCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, AppendLine(dir, "one\n"))
	require.NoError(t, AppendLine(dir, "two\n"))

	b, err := os.ReadFile(filepath.Join(dir, "events.log"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(b))
}
