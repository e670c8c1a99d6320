package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/queue"
)

func TestReturnApprovalRestocksOnce(t *testing.T) {
	e := newEnv(t)
	uid := e.register("alice", "alice@example.com").User.ID
	c := e.category("Tools")
	p := e.product(uid, c.ID, "Hammer", "10", 10)
	o := e.completedOrder(uid, model.OrderLine{ProductID: p.ID, Quantity: 4})
	itemID := o.Items[0].ID

	reason := "  damaged  "
	r, err := e.rets.Create(e.ctx, model.NewReturn{OrderItemID: itemID, QuantityReturned: 2, Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, model.ReturnRequested, r.Status)
	assert.Equal(t, "damaged", *r.Reason)
	assert.Equal(t, p.ID, r.ProductID)
	assert.Equal(t, 4, r.OrderedQuantity)
	assert.Equal(t, 6, e.stock(p.ID), "requesting does not restock")

	r, err = e.rets.Process(e.ctx, r.ID, model.ReturnApproved, uid)
	require.NoError(t, err)
	assert.Equal(t, model.ReturnApproved, r.Status)
	require.NotNil(t, r.ProcessedByUsername)
	assert.Equal(t, "alice", *r.ProcessedByUsername)
	assert.Equal(t, 8, e.stock(p.ID))

	last, err := e.inv.Last(e.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChangeReturn, last.ChangeType)
	assert.Equal(t, 2, last.QuantityChange)

	_, err = e.rets.Process(e.ctx, r.ID, model.ReturnApproved, uid)
	assert.Equal(t, "Return request has already been processed", apperr.Message(err))
	_, err = e.rets.Process(e.ctx, r.ID, model.ReturnRejected, uid)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 8, e.stock(p.ID))

	r, err = e.rets.Refund(e.ctx, r.ID, uid)
	require.NoError(t, err)
	assert.Equal(t, model.ReturnRefunded, r.Status)
	_, err = e.rets.Refund(e.ctx, r.ID, uid)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	types := e.pub.types()
	assert.Equal(t, []string{queue.ReturnProcessed, queue.ReturnProcessed}, types[len(types)-2:])
}

func TestReturnRejectionLeavesStock(t *testing.T) {
	e := newEnv(t)
	uid := e.register("alice", "alice@example.com").User.ID
	c := e.category("Tools")
	p := e.product(uid, c.ID, "Hammer", "10", 10)
	o := e.completedOrder(uid, model.OrderLine{ProductID: p.ID, Quantity: 3})

	r, err := e.rets.Create(e.ctx, model.NewReturn{OrderItemID: o.Items[0].ID, QuantityReturned: 3})
	require.NoError(t, err)

	_, err = e.rets.Process(e.ctx, r.ID, model.ReturnRefunded, uid)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	r, err = e.rets.Process(e.ctx, r.ID, model.ReturnRejected, uid)
	require.NoError(t, err)
	assert.Equal(t, model.ReturnRejected, r.Status)
	assert.Equal(t, 7, e.stock(p.ID))

	_, err = e.rets.Refund(e.ctx, r.ID, uid)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = e.rets.Process(e.ctx, 999, model.ReturnApproved, uid)
	assert.Equal(t, "Return request not found", apperr.Message(err))
}

func TestReturnQuantityIsCapped(t *testing.T) {
	e := newEnv(t)
	uid := e.register("alice", "alice@example.com").User.ID
	c := e.category("Tools")
	p := e.product(uid, c.ID, "Hammer", "10", 10)
	o := e.completedOrder(uid, model.OrderLine{ProductID: p.ID, Quantity: 3})
	item := o.Items[0].ID

	first, err := e.rets.Create(e.ctx, model.NewReturn{OrderItemID: item, QuantityReturned: 2})
	require.NoError(t, err)
	_, err = e.rets.Create(e.ctx, model.NewReturn{OrderItemID: item, QuantityReturned: 2})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// A rejected request frees its quantity again.
	_, err = e.rets.Process(e.ctx, first.ID, model.ReturnRejected, uid)
	require.NoError(t, err)
	_, err = e.rets.Create(e.ctx, model.NewReturn{OrderItemID: item, QuantityReturned: 3})
	assert.NoError(t, err)

	_, err = e.rets.Create(e.ctx, model.NewReturn{OrderItemID: item, QuantityReturned: 0})
	assert.Equal(t, "Quantity must be greater than 0", apperr.Message(err))
	_, err = e.rets.Create(e.ctx, model.NewReturn{OrderItemID: 999, QuantityReturned: 1})
	assert.Equal(t, "Order item not found", apperr.Message(err))
}

func TestReturnRequiresCompletedOrder(t *testing.T) {
	e := newEnv(t)
	uid := e.register("alice", "alice@example.com").User.ID
	c := e.category("Tools")
	p := e.product(uid, c.ID, "Hammer", "10", 10)
	o, err := e.orders.Create(e.ctx, uid, []model.OrderLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	_, err = e.rets.Create(e.ctx, model.NewReturn{OrderItemID: o.Items[0].ID, QuantityReturned: 1})
	assert.Equal(t, "Can only return items from completed orders", apperr.Message(err))
}

func TestReturnListingAndStatistics(t *testing.T) {
	e := newEnv(t)
	uid := e.register("alice", "alice@example.com").User.ID
	c := e.category("Tools")
	hammer := e.product(uid, c.ID, "Hammer", "10", 10)
	saw := e.product(uid, c.ID, "Saw", "20", 10)
	o := e.completedOrder(uid,
		model.OrderLine{ProductID: hammer.ID, Quantity: 4},
		model.OrderLine{ProductID: saw.ID, Quantity: 2})

	var hammerItem, sawItem uint64
	for _, it := range o.Items {
		if it.ProductID == hammer.ID {
			hammerItem = it.ID
		} else {
			sawItem = it.ID
		}
	}
	r1, err := e.rets.Create(e.ctx, model.NewReturn{OrderItemID: hammerItem, QuantityReturned: 1})
	require.NoError(t, err)
	_, err = e.rets.Create(e.ctx, model.NewReturn{OrderItemID: hammerItem, QuantityReturned: 2})
	require.NoError(t, err)
	_, err = e.rets.Create(e.ctx, model.NewReturn{OrderItemID: sawItem, QuantityReturned: 2})
	require.NoError(t, err)
	_, err = e.rets.Process(e.ctx, r1.ID, model.ReturnApproved, uid)
	require.NoError(t, err)

	byProduct, err := e.rets.ListByProduct(e.ctx, hammer.ID, 0)
	require.NoError(t, err)
	assert.Len(t, byProduct, 2)
	_, err = e.rets.ListByProduct(e.ctx, 999, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	requested := model.ReturnRequested
	open, err := e.rets.List(e.ctx, model.ReturnFilter{Status: &requested})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	st, err := e.rets.Statistics(e.ctx, model.ReturnFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalReturns)
	assert.Equal(t, int64(1), st.ApprovedReturns)
	assert.Equal(t, int64(2), st.PendingReturns)
	assert.Equal(t, int64(5), st.TotalItemsReturned)
	assert.Equal(t, "1.67", st.AvgReturnQuantity.String())
}
