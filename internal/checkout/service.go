// Package checkout converts a user's active cart into a pending order and
// opens the matching payment intent.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/internal/cart"
	"github.com/peakrent/peakrent-backend/internal/catalog"
	"github.com/peakrent/peakrent-backend/internal/orders"
	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/outbox/payloads"
	pkgstripe "github.com/peakrent/peakrent-backend/pkg/stripe"
	"github.com/peakrent/peakrent-backend/pkg/validation"
)

const maxReferenceAttempts = 3

var (
	referenceConstraints = []string{"orders_reference_key", "orders.reference"}
	intentConstraints    = []string{"payments_intent_id_key", "payments.intent_id"}
)

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type referenceGenerator interface {
	Generate(date *time.Time, reference string) (string, error)
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, req Request) (*Result, error)
}

type ServiceParams struct {
	Tx         db.TxRunner
	Carts      *cart.Repository
	Catalog    *catalog.Repository
	Orders     *orders.Repository
	Users      userLoader
	Gateway    pkgstripe.PaymentGateway
	Outbox     outbox.Emitter
	References referenceGenerator
	Currency   string
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	tx         db.TxRunner
	carts      *cart.Repository
	catalog    *catalog.Repository
	orders     *orders.Repository
	users      userLoader
	gateway    pkgstripe.PaymentGateway
	outbox     outbox.Emitter
	references referenceGenerator
	currency   string
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("user loader required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	refs := params.References
	if refs == nil {
		refs = orders.ReferenceGenerator{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "eur"
	}
	return &service{
		tx:         params.Tx,
		carts:      params.Carts,
		catalog:    params.Catalog,
		orders:     params.Orders,
		users:      params.Users,
		gateway:    params.Gateway,
		outbox:     params.Outbox,
		references: refs,
		currency:   currency,
		logg:       logg,
		now:        now,
	}, nil
}

// Checkout turns the active cart into an order. Stock is re-checked under
// variant locks and the voucher must still apply. A positive total opens a
// payment intent inside the same transaction; a zero total confirms the order
// without touching the gateway.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	callerReference := strings.TrimSpace(req.Reference)
	now := s.now().UTC()
	ctx = s.logg.WithUserID(ctx, userID.String())

	var (
		orderID uuid.UUID
		intent  *pkgstripe.Intent
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record, err := s.carts.WithTx(tx).FindActive(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
		}
		var v validation.Errors
		if address := record.Address.Data(); address.IsZero() {
			v.Add("address", "is required")
		} else {
			v.Merge("address", address.Validate())
		}
		if err := v.Err(); err != nil {
			return err
		}

		if err := s.reserve(ctx, tx, record.Items); err != nil {
			return err
		}

		quote, err := cart.BuildQuote(now, record.Items, record.Voucher)
		if err != nil {
			return err
		}

		order := buildOrder(record, quote, user.ID, s.currency)
		if quote.Totals.Total == 0 {
			setStatus(order, enums.OrderStatusConfirmed)
		}
		if err := s.insertOrder(ctx, tx, order, callerReference, now); err != nil {
			return err
		}
		orderID = order.ID

		if quote.Totals.Total > 0 {
			intent, err = s.gateway.CreatePaymentIntent(ctx, pkgstripe.CreateIntentParams{
				OrderID:   order.ID,
				Reference: order.Reference,
				Amount:    order.ChargedAmount,
				Currency:  order.Currency,
				Email:     user.Email,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
			}
			payment := &models.Payment{
				OrderID:  order.ID,
				Provider: enums.PaymentProviderStripe,
				IntentID: intent.ID,
				Status:   intent.Status,
				Amount:   order.ChargedAmount,
				Currency: order.Currency,
			}
			if err := s.orders.WithTx(tx).CreatePayment(ctx, payment); err != nil {
				if db.IsUniqueViolation(err, intentConstraints...) {
					return pkgerrors.New(pkgerrors.CodeConflict, "payment intent already recorded")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
			}
		}

		converted, err := s.carts.WithTx(tx).MarkStatus(ctx, record.ID, enums.CartStatusConverted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "convert cart")
		}
		if !converted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart was already checked out")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, Role: string(user.Role)},
			OccurredAt:    now,
			Data: payloads.OrderEvent{
				OrderID:       order.ID,
				Reference:     order.Reference,
				UserID:        order.UserID,
				Status:        order.Status,
				ChargedAmount: order.ChargedAmount,
				Currency:      order.Currency,
			},
		})
	})
	if err != nil {
		if intent != nil {
			if cancelErr := s.gateway.CancelPaymentIntent(ctx, intent.ID); cancelErr != nil {
				s.logg.Error(s.logg.WithField(ctx, "intent_id", intent.ID), "void intent after failed checkout", cancelErr)
			}
		}
		return nil, err
	}

	created, err := s.orders.FindForUser(ctx, userID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	result := &Result{Order: orders.FromModel(*created)}
	if intent != nil {
		result.RequiresPayment = true
		result.ClientSecret = intent.ClientSecret
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"reference":      created.Reference,
		"charged_amount": created.ChargedAmount,
	})
	s.logg.Info(logCtx, "checkout completed")
	return result, nil
}

// reserve locks every variant in id order and checks the cart's combined
// demand per overlapping window against the free units.
func (s *service) reserve(ctx context.Context, tx *gorm.DB, items []models.CartItem) error {
	repo := s.catalog.WithTx(tx)
	ids := make([]uuid.UUID, 0, len(items))
	seen := map[uuid.UUID]bool{}
	for _, item := range items {
		if !seen[item.VariantID] {
			seen[item.VariantID] = true
			ids = append(ids, item.VariantID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	variants := make(map[uuid.UUID]*models.Variant, len(ids))
	for _, id := range ids {
		variant, err := repo.LockVariant(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "a cart item is no longer available")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock variant")
		}
		variants[id] = variant
	}

	for _, item := range items {
		variant := variants[item.VariantID]
		availability, err := catalog.CheckAvailability(ctx, repo, variant, item.StartsAt, item.EndsAt)
		if err != nil {
			return err
		}
		requested := 0
		for _, other := range items {
			if other.VariantID == item.VariantID && other.StartsAt.Before(item.EndsAt) && other.EndsAt.After(item.StartsAt) {
				requested += other.Quantity
			}
		}
		if requested > availability.Available {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "not enough units available for the selected dates").
				WithDetails(cart.InsufficientStockDetails{VariantID: variant.ID, Requested: requested, Available: availability.Available})
		}
	}
	return nil
}

// insertOrder assigns the reference and inserts the order with its items.
// Generated references are retried on collision inside a savepoint; a
// colliding caller reference is a conflict.
func (s *service) insertOrder(ctx context.Context, tx *gorm.DB, order *models.Order, callerReference string, now time.Time) error {
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		reference, err := s.references.Generate(&now, callerReference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order reference")
		}
		order.Reference = reference
		err = tx.Transaction(func(inner *gorm.DB) error {
			return s.orders.WithTx(inner).Create(ctx, order)
		})
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, referenceConstraints...) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if callerReference != "" {
			return pkgerrors.New(pkgerrors.CodeConflict, "order reference already exists")
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order reference collision")
		order.ID = uuid.Nil
		for i := range order.Items {
			order.Items[i].ID = uuid.Nil
			order.Items[i].OrderID = uuid.Nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order reference")
}

func buildOrder(record *models.Cart, quote *cart.Quote, userID uuid.UUID, currency string) *models.Order {
	cartID := record.ID
	order := &models.Order{
		UserID:         userID,
		CartID:         &cartID,
		Status:         enums.OrderStatusPending,
		Currency:       currency,
		SubtotalAmount: quote.Totals.Subtotal,
		DiscountAmount: quote.Totals.Discount,
		ChargedAmount:  quote.Totals.Total,
		Address:        datatypes.NewJSONType(record.Address.Data()),
		Items:          make([]models.OrderItem, 0, len(quote.Lines)),
	}
	if quote.Voucher != nil {
		id := quote.Voucher.ID
		code := quote.Voucher.Code
		order.VoucherID = &id
		order.VoucherCode = &code
	}
	for _, line := range quote.Lines {
		order.Items = append(order.Items, models.OrderItem{
			VariantID:   line.VariantID,
			Quantity:    line.Quantity,
			StartsAt:    line.StartsAt,
			EndsAt:      line.EndsAt,
			PricePerDay: line.PricePerDay,
			RentalDays:  line.RentalDays,
			LineTotal:   line.LineTotal,
			Status:      enums.OrderItemStatusPending,
		})
	}
	return order
}

func setStatus(order *models.Order, status enums.OrderStatus) {
	order.Status = status
	itemStatus := orders.ItemStatusForOrderStatus(status)
	for i := range order.Items {
		order.Items[i].Status = itemStatus
	}
}
