package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ziggy12122/STK-Bot-sub000/internal/cart"
	"github.com/ziggy12122/STK-Bot-sub000/internal/catalog"
	"github.com/ziggy12122/STK-Bot-sub000/internal/checkout/helpers"
	"github.com/ziggy12122/STK-Bot-sub000/internal/checkout/reservation"
	"github.com/ziggy12122/STK-Bot-sub000/internal/orders"
	"github.com/ziggy12122/STK-Bot-sub000/internal/stats"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/idempotency"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/metrics"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox/payloads"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/redis"
)

const (
	defaultIdempotencyTTL = 10 * time.Minute
	checkoutTxTimeout     = 30 * time.Second
)

// Conflict names one cart line that failed checkout re-validation.
type Conflict = helpers.Conflict

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a user's cart into an order.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*orders.OrderDTO, error)
}

// CheckoutInput identifies the buyer. IdempotencyKey is optional; when set,
// a repeated submission with the same key is rejected while the first one
// stands.
type CheckoutInput struct {
	UserID         string
	DisplayName    string
	IdempotencyKey string
}

// ServiceParams wires the checkout dependencies. Idempotency, Metrics, Logger
// and Clock are optional.
type ServiceParams struct {
	Tx                txRunner
	Carts             *cart.Repository
	Products          *catalog.Repository
	Orders            orders.Repository
	Stats             *stats.Repository
	Outbox            outbox.Emitter
	Idempotency       redis.IdempotencyStore
	IdempotencyTTL    time.Duration
	ManualFulfillment bool
	Metrics           *metrics.CheckoutMetrics
	Logger            *logger.Logger
	Clock             func() time.Time
}

type service struct {
	tx            txRunner
	carts         *cart.Repository
	products      *catalog.Repository
	orders        orders.Repository
	stats         *stats.Repository
	outbox        outbox.Emitter
	claims        *idempotency.Guard
	initialStatus enums.OrderStatus
	metrics       *metrics.CheckoutMetrics
	logg          *logger.Logger
	now           func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	var claims *idempotency.Guard
	if params.Idempotency != nil {
		ttl := params.IdempotencyTTL
		if ttl <= 0 {
			ttl = defaultIdempotencyTTL
		}
		guard, err := idempotency.NewGuard(params.Idempotency, ttl)
		if err != nil {
			return nil, fmt.Errorf("checkout idempotency: %w", err)
		}
		claims = guard
	}
	status := enums.OrderStatusCompleted
	if params.ManualFulfillment {
		status = enums.OrderStatusPending
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		tx:            params.Tx,
		carts:         params.Carts,
		products:      params.Products,
		orders:        params.Orders,
		stats:         params.Stats,
		outbox:        params.Outbox,
		claims:        claims,
		initialStatus: status,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           clock,
	}, nil
}

// Checkout runs the whole conversion in one transaction: re-validate the cart
// against locked product rows, snapshot live prices into an order, decrement
// stock, fold the order into the buyer's stats, clear the cart and queue the
// notification event. Either every effect commits or none does.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*orders.OrderDTO, error) {
	started := s.now()
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required").
			WithDetails(map[string]any{"field": "user_id"})
	}
	displayName := strings.TrimSpace(input.DisplayName)
	ctx = s.logg.WithUserID(ctx, userID)

	if err := ctx.Err(); err != nil {
		failed := classify(err)
		s.record(ctx, failed, started)
		return nil, failed
	}
	release, err := s.claim(ctx, userID, strings.TrimSpace(input.IdempotencyKey))
	if err != nil {
		s.metrics.Observe(metrics.CheckoutResultDuplicate, s.now().Sub(started))
		return nil, err
	}

	// A caller hanging up must not roll back an order already being written.
	// The detached context keeps request values and gets its own deadline.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkoutTxTimeout)
	defer cancel()
	var order *models.Order
	err = s.tx.WithTx(txCtx, func(tx *gorm.DB) error {
		var txErr error
		order, txErr = s.checkoutTx(txCtx, tx, userID, displayName)
		return txErr
	})
	if err != nil {
		release(txCtx)
		err = classify(err)
		s.record(ctx, err, started)
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID)
	ctx = s.logg.WithField(ctx, "total", order.TotalAmount.StringFixed(2))
	s.logg.Info(ctx, "checkout completed")
	s.metrics.Observe(metrics.CheckoutResultSuccess, s.now().Sub(started))
	s.metrics.AddRevenue(order.TotalAmount.InexactFloat64())
	return orders.NewOrderDTO(order), nil
}

func (s *service) checkoutTx(ctx context.Context, tx *gorm.DB, userID, displayName string) (*models.Order, error) {
	carts := s.carts.WithTx(tx)

	lines, err := carts.ListLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	locked, err := s.products.WithTx(tx).FindByIDsForUpdate(ctx, helpers.ProductIDs(lines))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	products := helpers.IndexProducts(locked)
	if conflicts := helpers.ValidateLines(lines, products); len(conflicts) > 0 {
		return nil, stockConflict(conflicts)
	}

	orderLines, total := helpers.PriceLines(lines, products)
	now := s.now().UTC()

	ordersRepo := s.orders.WithTx(tx)
	order, err := ordersRepo.CreateOrder(ctx, &models.Order{
		UserID:      userID,
		DisplayName: displayName,
		TotalAmount: total,
		Status:      s.initialStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	for i := range orderLines {
		orderLines[i].OrderID = order.ID
	}
	if err := ordersRepo.CreateOrderLines(ctx, orderLines); err != nil {
		return nil, fmt.Errorf("create order lines: %w", err)
	}
	order.Lines = orderLines

	requests := make([]reservation.StockRequest, 0, len(lines))
	for _, line := range lines {
		requests = append(requests, reservation.StockRequest{ProductID: line.ProductID, Qty: line.Quantity})
	}
	results, err := reservation.ReserveStock(ctx, tx, requests)
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	if conflicts := refused(results, products); len(conflicts) > 0 {
		return nil, stockConflict(conflicts)
	}

	if err := s.stats.WithTx(tx).RecordPurchase(ctx, userID, displayName, total, now); err != nil {
		return nil, fmt.Errorf("update user stats: %w", err)
	}
	if _, err := carts.Clear(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	if err := s.emit(ctx, tx, order, results, products); err != nil {
		return nil, fmt.Errorf("queue order event: %w", err)
	}
	return order, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, order *models.Order, results []reservation.StockResult, products map[uint64]models.Product) error {
	actor := &outbox.ActorRef{UserID: order.UserID, DisplayName: order.DisplayName}
	lines := make([]payloads.OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, payloads.OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.TotalPrice,
		})
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   strconv.FormatUint(order.ID, 10),
		Actor:         actor,
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			UserID:      order.UserID,
			DisplayName: order.DisplayName,
			Status:      order.Status,
			TotalAmount: order.TotalAmount,
			Lines:       lines,
			CreatedAt:   order.CreatedAt,
		},
	}); err != nil {
		return err
	}

	for _, result := range results {
		if !result.Reserved || result.Remaining > 0 {
			continue
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductSoldOut,
			AggregateType: enums.AggregateProduct,
			AggregateID:   strconv.FormatUint(result.ProductID, 10),
			Actor:         actor,
			Data: payloads.ProductSoldOutEvent{
				ProductID: result.ProductID,
				Name:      products[result.ProductID].Name,
				OrderID:   order.ID,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

// claim reserves the caller's idempotency key. The returned func releases it
// and is a no-op when no key was claimed. Redis being unavailable does not
// block checkout.
func (s *service) claim(ctx context.Context, userID, key string) (func(context.Context), error) {
	noop := func(context.Context) {}
	if key == "" || s.claims == nil {
		return noop, nil
	}
	scope := idempotency.CheckoutScope(userID)
	claimed, err := s.claims.Claim(ctx, scope, key)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout idempotency guard unavailable")
		return noop, nil
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "checkout already submitted").
			WithDetails(map[string]any{"idempotency_key": key})
	}
	return func(ctx context.Context) {
		if err := s.claims.Release(ctx, scope, key); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release checkout idempotency key")
		}
	}, nil
}

func (s *service) record(ctx context.Context, err error, started time.Time) {
	elapsed := s.now().Sub(started)
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		s.metrics.Observe(metrics.CheckoutResultEmptyCart, elapsed)
	case pkgerrors.IsCode(err, pkgerrors.CodeStockConflict):
		s.metrics.Observe(metrics.CheckoutResultStockConflict, elapsed)
		s.logg.Info(ctx, "checkout rejected by stock re-validation")
	default:
		s.metrics.Observe(metrics.CheckoutResultFailed, elapsed)
		s.logg.Error(ctx, "checkout failed", err)
	}
}

// classify keeps the user-facing outcomes and folds everything else into
// CheckoutFailed.
func classify(err error) error {
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		switch typed.Code() {
		case pkgerrors.CodeEmptyCart, pkgerrors.CodeStockConflict, pkgerrors.CodeValidation:
			return typed
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "checkout failed")
}

func stockConflict(conflicts []Conflict) error {
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, strconv.FormatUint(c.ProductID, 10))
	}
	return pkgerrors.New(pkgerrors.CodeStockConflict, "stock changed for products "+strings.Join(ids, ", ")).
		WithDetails(map[string]any{"conflicts": conflicts})
}

func refused(results []reservation.StockResult, products map[uint64]models.Product) []Conflict {
	var conflicts []Conflict
	for _, result := range results {
		if result.Reserved {
			continue
		}
		product := products[result.ProductID]
		conflicts = append(conflicts, Conflict{
			ProductID: result.ProductID,
			Name:      product.Name,
			Requested: result.Qty,
			Available: product.Stock,
			Reason:    enums.StockReasonInsufficient,
		})
	}
	return conflicts
}

// ConflictsOf extracts the offending lines from a StockConflict error.
func ConflictsOf(err error) []Conflict {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStockConflict {
		return nil
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return nil
	}
	conflicts, _ := details["conflicts"].([]Conflict)
	return conflicts
}
