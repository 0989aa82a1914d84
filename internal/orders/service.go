// Package orders exposes the customer and staff order operations and the
// order status rules shared with checkout and payment reconciliation.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/pagination"
)

const (
	ReasonCustomerCancelled = "cancelled_by_customer"
	ReasonPendingExpired    = "pending_expired"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) ref() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}

type intentCanceller interface {
	CancelPaymentIntent(ctx context.Context, intentID string) error
}

// Service defines the order operations.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)

	AdminList(ctx context.Context, status string, params pagination.Params) (*OrderList, error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
	SetItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status string) (*OrderDTO, error)

	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ServiceParams bundles the order service dependencies.
type ServiceParams struct {
	Repo    *Repository
	Tx      db.TxRunner
	Outbox  outbox.Emitter
	Gateway intentCanceller
	Logger  *logger.Logger
}

type service struct {
	repo    *Repository
	tx      db.TxRunner
	outbox  outbox.Emitter
	gateway intentCanceller
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		gateway: params.Gateway,
		logg:    params.Logger,
	}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, &userID, "", params)
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) AdminList(ctx context.Context, status string, params pagination.Params) (*OrderList, error) {
	var filter enums.OrderStatus
	if status != "" {
		parsed, err := enums.ParseOrderStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter = parsed
	}
	return s.list(ctx, nil, filter, params)
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, status enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, userID, status, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	result := &OrderList{Orders: make([]OrderDTO, 0, len(page)), NextCursor: next}
	for _, o := range page {
		result.Orders = append(result.Orders, FromModel(o))
	}
	return result, nil
}

// Cancel cancels a pending order owned by the actor, voiding its payment intent.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, actor.UserID, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")
	}
	if err := s.cancelPending(ctx, order, ReasonCustomerCancelled, actor.ref()); err != nil {
		return nil, err
	}
	return s.AdminGet(ctx, orderID)
}

// UpdateStatus lets staff move an order. Cancelled, refunded and failed orders
// are final.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	target, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.Status.IsFinal() && order.Status != target {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s and can no longer change", order.Status)
	}

	if target == enums.OrderStatusCancelled && order.Status == enums.OrderStatusPending {
		if err := s.cancelPending(ctx, order, req.Reason, actor.ref()); err != nil {
			return nil, err
		}
		return s.AdminGet(ctx, orderID)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).Lock(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "lock order")
		}
		if locked.Status.IsFinal() && locked.Status != target {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s and can no longer change", locked.Status)
		}
		_, err = ApplyTransition(ctx, tx, s.outbox, Transition{
			Order:  locked,
			To:     target,
			Reason: req.Reason,
			Actor:  actor.ref(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.AdminGet(ctx, orderID)
}

// SetItemStatus records a physical handoff or return of one item.
func (s *service) SetItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status string) (*OrderDTO, error) {
	target, err := enums.ParseOrderItemStatus(status)
	if err != nil || !target.IsStaffSettable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item status must be distributed or recovered")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.Status.IsFinal() || order.Status == enums.OrderStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "items of a %s order cannot be handed over", order.Status)
	}
	item, err := s.repo.FindItem(ctx, orderID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order item")
	}
	if item.Status != target {
		if err := s.repo.UpdateItemStatus(ctx, item.ID, target, time.Now().UTC()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order item")
		}
	}
	return s.AdminGet(ctx, orderID)
}

// ExpirePending cancels up to limit pending orders created before cutoff and
// returns how many were cancelled. Failures are logged and skipped.
func (s *service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	ids, err := s.repo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale orders")
	}
	var (
		cancelled int
		errs      error
	)
	for _, id := range ids {
		order, err := s.repo.FindByID(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := s.cancelPending(ctx, order, ReasonPendingExpired, nil); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				continue
			}
			if s.logg != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, id.String()), "expire pending order failed", err)
			}
			errs = multierr.Append(errs, err)
			continue
		}
		cancelled++
	}
	return cancelled, errs
}

// cancelPending voids the payment intent and cancels the order in one
// transaction. The gateway is called first so a failed void leaves the order
// untouched.
func (s *service) cancelPending(ctx context.Context, order *models.Order, reason string, actor *outbox.ActorRef) error {
	if order.Payment != nil && order.Payment.IntentID != "" {
		if err := s.gateway.CancelPaymentIntent(ctx, order.Payment.IntentID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment intent")
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.Lock(ctx, order.ID)
		if err != nil {
			return notFoundOr(err, "lock order")
		}
		if locked.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")
		}
		if _, err := ApplyTransition(ctx, tx, s.outbox, Transition{
			Order:  locked,
			To:     enums.OrderStatusCancelled,
			Reason: reason,
			Actor:  actor,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		if order.Payment != nil {
			if err := repo.UpdatePaymentStatus(ctx, order.Payment.ID, string(enums.PaymentStatusCanceled)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
			}
		}
		return nil
	})
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
