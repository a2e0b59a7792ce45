package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"evcoupon/entity"
	"evcoupon/impl/coupon"
	"evcoupon/lib/sl"
)

type AuthService interface {
	OperatorByToken(token string) (*entity.Operator, error)
}

type CouponService interface {
	Issue(ctx context.Context, in coupon.IssueInput) (*coupon.IssueResult, error)
	Redeem(ctx context.Context, in coupon.RedeemInput) (*entity.RedemptionResult, error)
	Definition(ctx context.Context, id int64) (*entity.CouponDefinition, error)
	CreateDefinition(ctx context.Context, req *entity.CouponDefinitionRequest) (*entity.CouponDefinition, error)
	UpdateDefinition(ctx context.Context, id int64, req *entity.CouponDefinitionRequest) (*entity.CouponDefinition, error)
	SetDefinitionActive(ctx context.Context, id int64, active bool) (*entity.CouponDefinition, error)
	OperatorCoupons(ctx context.Context) ([]entity.CouponDefinition, error)
	SetRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus) (*entity.Registration, error)
}

type Core struct {
	coupons CouponService
	auth    AuthService
	log     *slog.Logger
}

func New(coupons CouponService, log *slog.Logger) *Core {
	if coupons == nil {
		panic("coupon service is nil")
	}
	return &Core{
		coupons: coupons,
		log:     log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) AuthenticateByToken(token string) (*entity.Operator, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.OperatorByToken(token)
}

func (c *Core) RegisterForEvent(ctx context.Context, customerID, eventID string, req *entity.RegisterRequest) (*coupon.IssueResult, error) {
	res, err := c.coupons.Issue(ctx, coupon.IssueInput{
		CustomerID:   customerID,
		CustomerName: req.CustomerName,
		EventID:      eventID,
		ClaimData:    req.ClaimData,
		Answers:      req.Answers,
	})
	if err != nil {
		c.failed("register for event", err, slog.String("event_id", eventID))
		return nil, err
	}
	return res, nil
}

// ScanCoupon takes the operator resolved by the authentication middleware.
func (c *Core) ScanCoupon(ctx context.Context, op *entity.Operator, req *entity.ScanRequest) (*entity.RedemptionResult, error) {
	if op == nil {
		return &entity.RedemptionResult{
			Outcome:   entity.OutcomeForbidden,
			CheckOnly: req.CheckOnly,
			Message:   "Forbidden: insufficient permissions",
		}, nil
	}
	token, err := coupon.TokenFromPayload(req.QRData)
	if err != nil {
		return nil, entity.Invalid("qr_data: %s", err)
	}
	res, err := c.coupons.Redeem(ctx, coupon.RedeemInput{
		Token:      token,
		OperatorID: op.ID,
		Role:       op.Role,
		CheckOnly:  req.CheckOnly,
	})
	if err != nil {
		c.failed("scan coupon", err, slog.Int64("operator_id", op.ID))
		return nil, err
	}
	return res, nil
}

func (c *Core) CouponDefinition(ctx context.Context, id int64) (*entity.CouponDefinition, error) {
	return c.coupons.Definition(ctx, id)
}

func (c *Core) CreateCouponDefinition(ctx context.Context, req *entity.CouponDefinitionRequest) (*entity.CouponDefinition, error) {
	def, err := c.coupons.CreateDefinition(ctx, req)
	if err != nil {
		c.failed("create coupon", err, slog.String("code", req.Code))
		return nil, err
	}
	return def, nil
}

func (c *Core) UpdateCouponDefinition(ctx context.Context, id int64, req *entity.CouponDefinitionRequest) (*entity.CouponDefinition, error) {
	def, err := c.coupons.UpdateDefinition(ctx, id, req)
	if err != nil {
		c.failed("update coupon", err, slog.Int64("id", id))
		return nil, err
	}
	return def, nil
}

func (c *Core) SetCouponActive(ctx context.Context, id int64, active bool) (*entity.CouponDefinition, error) {
	def, err := c.coupons.SetDefinitionActive(ctx, id, active)
	if err != nil {
		c.failed("set coupon status", err, slog.Int64("id", id))
		return nil, err
	}
	return def, nil
}

func (c *Core) OperatorCoupons(ctx context.Context) ([]entity.CouponDefinition, error) {
	defs, err := c.coupons.OperatorCoupons(ctx)
	if err != nil {
		c.failed("operator coupons", err)
		return nil, err
	}
	return defs, nil
}

func (c *Core) SetRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus) (*entity.Registration, error) {
	reg, err := c.coupons.SetRegistrationStatus(ctx, id, status)
	if err != nil {
		c.failed("set registration status", err, slog.String("id", id))
		return nil, err
	}
	return reg, nil
}

// failed logs business rejections at debug and everything else as an alertable error.
func (c *Core) failed(op string, err error, attrs ...any) {
	log := c.log.With(attrs...)
	if isBusinessError(err) {
		log.Debug(op, sl.Err(err))
		return
	}
	log.Error(op, sl.Err(err), sl.Topic(entity.TopicError))
}

func isBusinessError(err error) bool {
	return errors.Is(err, entity.ErrValidation) ||
		errors.Is(err, entity.ErrNotFound) ||
		errors.Is(err, entity.ErrConflict) ||
		errors.Is(err, entity.ErrWindowViolation) ||
		errors.Is(err, entity.ErrForbidden)
}
