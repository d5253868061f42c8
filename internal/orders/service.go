package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ziggy12122/STK-Bot-sub000/internal/catalog"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox/payloads"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/pagination"
)

const expiredReason = "pending order expired"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers order reads and the fulfillment state machine.
type Service interface {
	GetOrder(ctx context.Context, id uint64) (*OrderDTO, error)
	GetUserOrder(ctx context.Context, userID string, id uint64) (*OrderDTO, error)
	ListUserOrders(ctx context.Context, userID string, params pagination.Params) (*OrderList, error)
	ListOrders(ctx context.Context, filter ListFilter) (*OrderList, error)
	CompleteOrder(ctx context.Context, input TransitionInput) (*OrderDTO, error)
	CancelOrder(ctx context.Context, input TransitionInput) (*OrderDTO, error)
	ExpireOrder(ctx context.Context, id uint64) (*OrderDTO, error)
}

// TransitionInput carries an admin decision on a pending order.
type TransitionInput struct {
	OrderID uint64
	Actor   *outbox.ActorRef
	Notes   *string
}

type service struct {
	repo     Repository
	products *catalog.Repository
	tx       txRunner
	outbox   outbox.Emitter
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, products *catalog.Repository, tx txRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, products: products, tx: tx, outbox: emitter}, nil
}

func (s *service) GetOrder(ctx context.Context, id uint64) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, orderNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return NewOrderDTO(order), nil
}

// GetUserOrder hides other users' orders behind NotFound.
func (s *service) GetUserOrder(ctx context.Context, userID string, id uint64) (*OrderDTO, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, orderNotFound(id)
	}
	return order, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID string, params pagination.Params) (*OrderList, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.ListOrders(ctx, ListFilter{UserID: userID, Params: params})
}

// ListOrders returns one page of orders, newest first. Feed NextCursor back
// in to fetch the following page.
func (s *service) ListOrders(ctx context.Context, filter ListFilter) (*OrderList, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"field": "status"})
	}
	after, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	rows, err := s.repo.ListOrders(ctx, ListQuery{
		UserID: filter.UserID,
		Status: filter.Status,
		After:  after,
		Limit:  pagination.LimitWithBuffer(filter.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows, next := pagination.Page(rows, filter.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &OrderList{Orders: newOrderDTOs(rows), NextCursor: next}, nil
}

func (s *service) CompleteOrder(ctx context.Context, input TransitionInput) (*OrderDTO, error) {
	return s.transition(ctx, transition{
		orderID:   input.OrderID,
		target:    enums.OrderStatusCompleted,
		eventType: enums.EventOrderCompleted,
		actor:     input.Actor,
		notes:     input.Notes,
	})
}

// CancelOrder returns the order's units to stock. Purchase stats are not reversed.
func (s *service) CancelOrder(ctx context.Context, input TransitionInput) (*OrderDTO, error) {
	return s.transition(ctx, transition{
		orderID:   input.OrderID,
		target:    enums.OrderStatusCancelled,
		eventType: enums.EventOrderCancelled,
		actor:     input.Actor,
		notes:     input.Notes,
		restock:   true,
	})
}

// ExpireOrder cancels a pending order nobody fulfilled in time.
func (s *service) ExpireOrder(ctx context.Context, id uint64) (*OrderDTO, error) {
	reason := expiredReason
	return s.transition(ctx, transition{
		orderID:   id,
		target:    enums.OrderStatusCancelled,
		eventType: enums.EventOrderExpired,
		notes:     &reason,
		restock:   true,
	})
}

type transition struct {
	orderID   uint64
	target    enums.OrderStatus
	eventType enums.OutboxEventType
	actor     *outbox.ActorRef
	notes     *string
	restock   bool
}

func (s *service) transition(ctx context.Context, t transition) (*OrderDTO, error) {
	if t.orderID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	notes := trimNotes(t.notes)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, t.orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return orderNotFound(t.orderID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransitionTo(t.target) {
			return stateConflict(order.ID, order.Status, t.target)
		}

		updated, err := repo.UpdateStatus(ctx, order.ID, order.Status, t.target, notes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !updated {
			return stateConflict(order.ID, order.Status, t.target)
		}

		if t.restock {
			products := s.products.WithTx(tx)
			for _, line := range order.Lines {
				if err := products.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
				}
			}
		}

		reason := ""
		if notes != nil {
			reason = *notes
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     t.eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatUint(order.ID, 10),
			Actor:         t.actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				From:      order.Status,
				To:        t.target,
				Reason:    reason,
				Restocked: t.restock,
				ChangedAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order transition")
	}
	return s.GetOrder(ctx, t.orderID)
}

func orderNotFound(id uint64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": id})
}

func stateConflict(id uint64, from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"order_id": id, "status": from, "requested": to})
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
