package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/internal/repository"
	"github.com/rohitsengarppv-gif/multimallpro/pkg/logger"
	"go.uber.org/zap"
)

type StatusUpdate struct {
	Status   domain.OrderStatus
	Tracking *domain.Tracking
}

// OrderStatusService reads orders and drives their status after checkout.
// Line items and pricing are never touched here.
type OrderStatusService struct {
	orders repository.OrderRepository
}

func NewOrderStatusService(orders repository.OrderRepository) *OrderStatusService {
	return &OrderStatusService{orders: orders}
}

func (s *OrderStatusService) Get(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		logFailure(ctx, "get order failed", err, zap.String("order_id", orderID))
		return nil, err
	}
	return order, nil
}

// List returns the orders visible to actor, newest first: customers see their
// own, vendors those containing their lines, admins all.
func (s *OrderStatusService) List(ctx context.Context, actor domain.Actor, limit int64) ([]domain.Order, error) {
	filter := repository.OrderFilter{Limit: limit}
	switch actor.Role {
	case domain.RoleCustomer:
		filter.OwnerID = actor.ID
	case domain.RoleVendor:
		filter.VendorID = actor.ID
	case domain.RoleAdmin:
	default:
		return nil, errUnauthenticated
	}
	if actor.ID == "" {
		return nil, errUnauthenticated
	}

	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderStatusService) UpdateStatus(ctx context.Context, actor domain.Actor, orderID string, upd StatusUpdate) (*domain.Order, error) {
	order, err := s.updateStatus(ctx, actor, orderID, upd)
	if err != nil {
		logFailure(ctx, "update order status failed", err,
			zap.String("order_id", orderID), zap.String("to", upd.Status.String()))
		return nil, err
	}

	logger.FromContext(ctx).Info("order status changed",
		zap.String("order_id", order.ID),
		zap.String("status", order.Status.String()),
		zap.String("actor", actor.ID),
		zap.String("role", string(actor.Role)))
	return order, nil
}

func (s *OrderStatusService) updateStatus(ctx context.Context, actor domain.Actor, orderID string, upd StatusUpdate) (*domain.Order, error) {
	if !upd.Status.Valid() {
		return nil, domain.Reject(domain.ReasonIllegalTransition, "unknown status %q", upd.Status)
	}
	if upd.Tracking != nil && upd.Status != domain.OrderStatusShipped {
		return nil, domain.Reject(domain.ReasonIllegalTransition, "tracking can only be set when shipping")
	}

	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role == domain.RoleCustomer &&
		(upd.Status != domain.OrderStatusCancelled || order.Status != domain.OrderStatusPending) {
		return nil, domain.Reject(domain.ReasonForbidden, "customers may only cancel pending orders")
	}
	if !domain.CanTransitionTo(order.Status, upd.Status) {
		return nil, domain.Reject(domain.ReasonIllegalTransition,
			"cannot move order from %s to %s", order.Status, upd.Status)
	}

	payload, err := json.Marshal(statusChangedPayload{
		OrderID:   order.ID,
		OwnerID:   order.OwnerID,
		From:      order.Status,
		To:        upd.Status,
		Tracking:  upd.Tracking,
		ChangedBy: actor.ID,
		Role:      actor.Role,
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal status event: %w", err)
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, order.Status, upd.Status, upd.Tracking, &repository.OutboxEvent{
		AggregateID: order.ID,
		EventType:   EventOrderStatusChanged,
		Payload:     payload,
	})
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, domain.Reject(domain.ReasonIllegalTransition, "order status changed concurrently, reload and retry")
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// load fetches an order and hides it from actors who may not see it.
func (s *OrderStatusService) load(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if actor.ID == "" || !actor.Role.Valid() {
		return nil, errUnauthenticated
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, domain.Reject(domain.ReasonNotFound, "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	visible := actor.Role == domain.RoleAdmin ||
		(actor.Role == domain.RoleCustomer && order.OwnerID == actor.ID) ||
		(actor.Role == domain.RoleVendor && order.HasVendor(actor.ID))
	if !visible {
		return nil, domain.Reject(domain.ReasonNotFound, "order not found")
	}
	return order, nil
}

type statusChangedPayload struct {
	OrderID   string             `json:"order_id"`
	OwnerID   string             `json:"owner_id"`
	From      domain.OrderStatus `json:"from"`
	To        domain.OrderStatus `json:"to"`
	Tracking  *domain.Tracking   `json:"tracking,omitempty"`
	ChangedBy string             `json:"changed_by"`
	Role      domain.Role        `json:"role"`
	ChangedAt time.Time          `json:"changed_at"`
}
