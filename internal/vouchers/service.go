// Package vouchers manages admin discount codes.
package vouchers

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/pagination"
	"github.com/peakrent/peakrent-backend/pkg/validation"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]*$`)

// Service exposes the admin voucher operations.
type Service interface {
	Create(ctx context.Context, req CreateVoucherRequest) (*VoucherDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateVoucherRequest) (*VoucherDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*VoucherDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, req CreateVoucherRequest) (*VoucherDTO, error) {
	voucher := models.Voucher{
		Code:        NormalizeCode(req.Code),
		Description: req.Description,
		Type:        enums.VoucherType(req.Type),
		Amount:      req.Amount,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		IsActive:    true,
	}
	if req.IsActive != nil {
		voucher.IsActive = *req.IsActive
	}

	var v validation.Errors
	if v.Required("code", voucher.Code) && v.MaxLen("code", voucher.Code, 64) && !codePattern.MatchString(voucher.Code) {
		v.Add("code", "may only contain letters, digits, dashes and underscores")
	}
	v.MaxLen("description", voucher.Description, 500)
	validateTerms(&v, voucher)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &voucher); err != nil {
		if db.IsUniqueViolation(err, "vouchers_code_key", "vouchers.code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "voucher code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create voucher")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"voucher_id": voucher.ID.String(), "code": voucher.Code}), "voucher created")
	}
	dto := FromModel(voucher)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateVoucherRequest) (*VoucherDTO, error) {
	voucher, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		voucher.Description = *req.Description
	}
	if req.Type != nil {
		voucher.Type = enums.VoucherType(*req.Type)
	}
	if req.Amount != nil {
		voucher.Amount = *req.Amount
	}
	switch {
	case req.ClearStartsAt:
		voucher.StartsAt = nil
	case req.StartsAt != nil:
		voucher.StartsAt = req.StartsAt
	}
	switch {
	case req.ClearEndsAt:
		voucher.EndsAt = nil
	case req.EndsAt != nil:
		voucher.EndsAt = req.EndsAt
	}
	if req.IsActive != nil {
		voucher.IsActive = *req.IsActive
	}

	var v validation.Errors
	v.MaxLen("description", voucher.Description, 500)
	validateTerms(&v, *voucher)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, voucher); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update voucher")
	}
	dto := FromModel(*voucher)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*VoucherDTO, error) {
	voucher, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*voucher)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vouchers")
	}
	page, next := pagination.Trim(rows, params.Limit, func(v models.Voucher) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	result := &ListResult{Vouchers: make([]VoucherDTO, 0, len(page)), NextCursor: next}
	for _, v := range page {
		result.Vouchers = append(result.Vouchers, FromModel(v))
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete voucher")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	voucher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load voucher")
	}
	return voucher, nil
}

// validateTerms checks the type against the amount and the validity window.
func validateTerms(v *validation.Errors, voucher models.Voucher) {
	if !voucher.Type.IsValid() {
		v.OneOf("type", string(voucher.Type), string(enums.VoucherTypePercentage), string(enums.VoucherTypeFixed))
	} else if voucher.Type == enums.VoucherTypePercentage {
		v.Between("amount", voucher.Amount, 1, 100)
	} else {
		v.Positive("amount", voucher.Amount)
	}
	v.Window("starts_at", "ends_at", voucher.StartsAt, voucher.EndsAt)
}
