package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sent struct{ to, subject, body string }

type recordingNotifier struct {
	msgs []sent
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	r.msgs = append(r.msgs, sent{to, subject, body})
	return r.err
}

func TestReceiptConsumer_HandleOrderPaid(t *testing.T) {
	n := &recordingNotifier{}
	c := &ReceiptConsumer{Notifier: n, Log: zap.NewNop()}
	body, err := json.Marshal(OrderPaidEvent{
		OrderID: 7, Email: "buyer@example.com", EventTitle: "Juba Jazz Night", TicketClass: "VIP",
		Quantity: 2, TotalAmount: "50.00", Currency: "SSP", TicketCodes: []string{"c1", "c2"},
	})
	require.NoError(t, err)

	require.NoError(t, c.Handle(context.Background(), RoutingOrderPaid, body))
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "buyer@example.com", n.msgs[0].to)
	assert.Contains(t, n.msgs[0].subject, "order #7")
	assert.Contains(t, n.msgs[0].body, "c2")
	assert.Contains(t, n.msgs[0].body, "50.00 SSP")
}

func TestReceiptConsumer_HandleRefunded(t *testing.T) {
	n := &recordingNotifier{}
	c := &ReceiptConsumer{Notifier: n, Log: zap.NewNop()}
	body, _ := json.Marshal(OrderRefundedEvent{OrderID: 3, Email: "b@example.com", TotalAmount: "10.00", Currency: "SSP"})

	require.NoError(t, c.Handle(context.Background(), RoutingOrderRefunded, body))
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0].subject, "Refund approved")
}

func TestReceiptConsumer_HandleErrors(t *testing.T) {
	n := &recordingNotifier{err: errors.New("smtp down")}
	c := &ReceiptConsumer{Notifier: n, Log: zap.NewNop()}

	assert.Error(t, c.Handle(context.Background(), "order.unknown", []byte(`{}`)))
	assert.Error(t, c.Handle(context.Background(), RoutingOrderPaid, []byte(`{`)))
	assert.NoError(t, c.Handle(context.Background(), RoutingOrderPaid, []byte(`{"order_id":1}`)))
	assert.Empty(t, n.msgs)

	err := c.Handle(context.Background(), RoutingOrderPaid, []byte(`{"order_id":1,"email":"x@y.z"}`))
	assert.ErrorContains(t, err, "smtp down")
}
