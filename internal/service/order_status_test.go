package service

import (
	"context"
	"testing"

	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customer = domain.Actor{ID: "user1", Role: domain.RoleCustomer}
	stranger = domain.Actor{ID: "user2", Role: domain.RoleCustomer}
	vendor1  = domain.Actor{ID: "vendor-1", Role: domain.RoleVendor}
	vendor2  = domain.Actor{ID: "vendor-2", Role: domain.RoleVendor}
	admin    = domain.Actor{ID: "ops", Role: domain.RoleAdmin}
)

func seedOrder(t *testing.T, repo *mockOrderRepo, id, owner string, status domain.OrderStatus, vendors ...string) *domain.Order {
	t.Helper()
	o := &domain.Order{
		ID:             id,
		OrderNumber:    "ORD-" + id,
		OwnerID:        owner,
		IdempotencyKey: "key-" + id,
		Status:         domain.OrderStatusPending,
	}
	for _, v := range vendors {
		o.Lines = append(o.Lines, domain.OrderLineItem{ProductID: "p-" + v, VendorID: v, Quantity: 1})
	}
	require.NoError(t, repo.CreateOrder(context.Background(), o, nil))
	if status != domain.OrderStatusPending {
		repo.mu.Lock()
		repo.orders[id].Status = status
		repo.mu.Unlock()
	}
	return o
}

func newStatusService() (*OrderStatusService, *mockOrderRepo) {
	repo := newMockOrderRepo(newMockCouponRepo())
	return NewOrderStatusService(repo), repo
}

func TestOrderStatus_FullLifecycle(t *testing.T) {
	svc, repo := newStatusService()
	seedOrder(t, repo, "o1", "user1", domain.OrderStatusPending, "vendor-1")
	ctx := context.Background()

	steps := []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusRefunded,
	}
	for _, next := range steps {
		upd := StatusUpdate{Status: next}
		if next == domain.OrderStatusShipped {
			upd.Tracking = &domain.Tracking{Carrier: "BlueDart", TrackingNumber: "BD123"}
		}
		got, err := svc.UpdateStatus(ctx, vendor1, "o1", upd)
		require.NoError(t, err, "to %s", next)
		assert.Equal(t, next, got.Status)
	}

	got, err := svc.Get(ctx, admin, "o1")
	require.NoError(t, err)
	require.NotNil(t, got.Tracking)
	assert.Equal(t, "BD123", got.Tracking.TrackingNumber)

	assert.Len(t, repo.eventTypes(), len(steps))
	for _, et := range repo.eventTypes() {
		assert.Equal(t, EventOrderStatusChanged, et)
	}
}

func TestOrderStatus_IllegalTransitions(t *testing.T) {
	svc, repo := newStatusService()
	seedOrder(t, repo, "pending", "user1", domain.OrderStatusPending, "vendor-1")
	seedOrder(t, repo, "cancelled", "user1", domain.OrderStatusCancelled, "vendor-1")
	seedOrder(t, repo, "shipped", "user1", domain.OrderStatusShipped, "vendor-1")
	ctx := context.Background()

	cases := []struct {
		order string
		to    domain.OrderStatus
	}{
		{"pending", domain.OrderStatusShipped},
		{"pending", domain.OrderStatusRefunded},
		{"pending", domain.OrderStatusPending},
		{"cancelled", domain.OrderStatusConfirmed},
		{"shipped", domain.OrderStatusCancelled},
		{"pending", "teleported"},
	}
	for _, tc := range cases {
		_, err := svc.UpdateStatus(ctx, admin, tc.order, StatusUpdate{Status: tc.to})
		requireReason(t, err, domain.ReasonIllegalTransition)
	}
	assert.Empty(t, repo.eventTypes())
}

func TestOrderStatus_TrackingOnlyWhenShipping(t *testing.T) {
	svc, repo := newStatusService()
	seedOrder(t, repo, "o1", "user1", domain.OrderStatusPending, "vendor-1")

	_, err := svc.UpdateStatus(context.Background(), admin, "o1", StatusUpdate{
		Status:   domain.OrderStatusConfirmed,
		Tracking: &domain.Tracking{TrackingNumber: "X"},
	})
	requireReason(t, err, domain.ReasonIllegalTransition)
}

func TestOrderStatus_CustomerMayOnlyCancelPending(t *testing.T) {
	svc, repo := newStatusService()
	seedOrder(t, repo, "pending", "user1", domain.OrderStatusPending, "vendor-1")
	seedOrder(t, repo, "confirmed", "user1", domain.OrderStatusConfirmed, "vendor-1")
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, customer, "pending", StatusUpdate{Status: domain.OrderStatusConfirmed})
	requireReason(t, err, domain.ReasonForbidden)

	_, err = svc.UpdateStatus(ctx, customer, "confirmed", StatusUpdate{Status: domain.OrderStatusCancelled})
	requireReason(t, err, domain.ReasonForbidden)

	_, err = svc.UpdateStatus(ctx, stranger, "pending", StatusUpdate{Status: domain.OrderStatusCancelled})
	requireReason(t, err, domain.ReasonNotFound)

	got, err := svc.UpdateStatus(ctx, customer, "pending", StatusUpdate{Status: domain.OrderStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
}

func TestOrderStatus_Visibility(t *testing.T) {
	svc, repo := newStatusService()
	seedOrder(t, repo, "o1", "user1", domain.OrderStatusPending, "vendor-1", "vendor-3")
	ctx := context.Background()

	for _, actor := range []domain.Actor{customer, vendor1, admin} {
		_, err := svc.Get(ctx, actor, "o1")
		assert.NoError(t, err, "actor %s", actor.ID)
	}
	for _, actor := range []domain.Actor{stranger, vendor2} {
		_, err := svc.Get(ctx, actor, "o1")
		requireReason(t, err, domain.ReasonNotFound)
	}

	_, err := svc.Get(ctx, admin, "missing")
	requireReason(t, err, domain.ReasonNotFound)

	_, err = svc.Get(ctx, domain.Actor{ID: "x", Role: "guest"}, "o1")
	requireReason(t, err, domain.ReasonUnauthorized)

	_, err = svc.UpdateStatus(ctx, vendor2, "o1", StatusUpdate{Status: domain.OrderStatusConfirmed})
	requireReason(t, err, domain.ReasonNotFound)
}

func TestOrderStatus_ListByRole(t *testing.T) {
	svc, repo := newStatusService()
	seedOrder(t, repo, "o1", "user1", domain.OrderStatusPending, "vendor-1")
	seedOrder(t, repo, "o2", "user1", domain.OrderStatusPending, "vendor-2")
	seedOrder(t, repo, "o3", "user2", domain.OrderStatusPending, "vendor-1", "vendor-2")
	ctx := context.Background()

	ids := func(actor domain.Actor) []string {
		list, err := svc.List(ctx, actor, 0)
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, o := range list {
			out = append(out, o.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"o1", "o2"}, ids(customer))
	assert.ElementsMatch(t, []string{"o3"}, ids(stranger))
	assert.ElementsMatch(t, []string{"o1", "o3"}, ids(vendor1))
	assert.ElementsMatch(t, []string{"o1", "o2", "o3"}, ids(admin))

	_, err := svc.List(ctx, domain.Actor{Role: domain.RoleCustomer}, 0)
	requireReason(t, err, domain.ReasonUnauthorized)
}
