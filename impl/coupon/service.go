// Package coupon issues redeemable coupon instances for event registrations and
// redeems them at most once.
//
// All coordination between concurrent requests is delegated to the Store: issuance
// runs in one transaction, quota reservation and the redemption transition are
// single conditional updates. The service itself keeps no shared mutable state.
package coupon

import (
	"context"
	"log/slog"
	"time"

	"evcoupon/entity"
	"evcoupon/lib/clock"
	"evcoupon/lib/sl"
)

// Store is the persistence contract of the engine. Lookups return nil, nil when
// nothing matches. Create methods return entity.ErrConflict on unique violations.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	EventByID(ctx context.Context, id string) (*entity.Event, error)

	RegistrationByID(ctx context.Context, id string) (*entity.Registration, error)
	RegistrationByCustomer(ctx context.Context, customerID, eventID string) (*entity.Registration, error)
	CreateRegistration(ctx context.Context, reg *entity.Registration) error
	UpdateRegistration(ctx context.Context, reg *entity.Registration) error
	SetRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus, at time.Time) error
	ReplaceAnswers(ctx context.Context, registrationID string, answers []entity.Answer) error

	InstanceByToken(ctx context.Context, token string) (*entity.CouponInstance, error)
	InstanceByRegistration(ctx context.Context, registrationID string) (*entity.CouponInstance, error)
	CreateInstance(ctx context.Context, inst *entity.CouponInstance) error
	// TryTransition moves an instance from one redemption state to another only if it
	// is still in the from state. It reports false when another writer got there first.
	TryTransition(ctx context.Context, instanceID string, from, to entity.RedemptionState, operatorID int64, at time.Time) (bool, error)

	DefinitionByID(ctx context.Context, id int64) (*entity.CouponDefinition, error)
	DefinitionByCode(ctx context.Context, eventID, code string) (*entity.CouponDefinition, error)
	// DefinitionsForEvent is ordered by redeem_from, then id.
	DefinitionsForEvent(ctx context.Context, eventID string) ([]entity.CouponDefinition, error)
	// DefinitionsRedeemableBetween returns active definitions whose redemption window
	// intersects [from, to], ordered by redeem_from.
	DefinitionsRedeemableBetween(ctx context.Context, from, to time.Time) ([]entity.CouponDefinition, error)
	CreateDefinition(ctx context.Context, def *entity.CouponDefinition) error
	UpdateDefinition(ctx context.Context, def *entity.CouponDefinition) error
	SetDefinitionActive(ctx context.Context, id int64, active bool, at time.Time) error
	// TryReserve increments total_generated when the quota allows it, in one statement.
	TryReserve(ctx context.Context, definitionID int64) (bool, error)
}

// Operators resolves staff names for scan responses.
type Operators interface {
	OperatorByID(id int64) (*entity.Operator, error)
}

type Service struct {
	store     Store
	tokens    Tokens
	clock     clock.Clock
	operators Operators
	loc       *time.Location
	log       *slog.Logger
}

type Option func(*Service)

func WithTokens(t Tokens) Option {
	return func(s *Service) {
		if t != nil {
			s.tokens = t
		}
	}
}

func WithOperators(o Operators) Option {
	return func(s *Service) {
		s.operators = o
	}
}

// WithLocation sets the time zone used to compute "today" for operator coupon lists.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func New(store Store, clk clock.Clock, log *slog.Logger, opts ...Option) *Service {
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:  store,
		tokens: RandomTokens{},
		clock:  clk,
		loc:    time.UTC,
		log:    log.With(sl.Module("coupon")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
