package coupon

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"evcoupon/entity"
	"evcoupon/lib/sl"

	"github.com/google/uuid"
)

type IssueInput struct {
	CustomerID   string
	CustomerName string
	EventID      string
	ClaimData    string
	// Answers replace the stored questionnaire answers; nil keeps them untouched.
	Answers []entity.Answer
}

type IssueResult struct {
	Registration entity.Registration      `json:"registration"`
	Instance     entity.CouponInstance    `json:"coupon"`
	Definition   *entity.CouponDefinition `json:"definition,omitempty"`
	Payload      string                   `json:"qr_data"`
	Created      bool                     `json:"created"`
}

// Issue registers a customer for an event and binds exactly one coupon instance
// to the registration. Repeated calls update claim data and answers but keep the
// original token.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.EventID = strings.TrimSpace(in.EventID)
	if in.CustomerID == "" {
		return nil, entity.Invalid("customer id is required")
	}
	if in.EventID == "" {
		return nil, entity.Invalid("event id is required")
	}
	if _, err := uuid.Parse(in.EventID); err != nil {
		return nil, entity.Invalid("event id %q is not a valid uuid", in.EventID)
	}
	seen := make(map[int64]bool, len(in.Answers))
	for _, a := range in.Answers {
		if a.QuestionID < 1 {
			return nil, entity.Invalid("answer without question id")
		}
		if seen[a.QuestionID] {
			return nil, entity.Invalid("question %d answered twice", a.QuestionID)
		}
		seen[a.QuestionID] = true
	}

	log := s.log.With(
		slog.String("customer_id", in.CustomerID),
		slog.String("event_id", in.EventID),
	)

	var result *IssueResult
	var err error
	// a lost unique race rolls back the whole unit; the second pass finds the winner's row
	for attempt := 0; attempt < 2; attempt++ {
		result, err = s.issueOnce(ctx, in)
		if err == nil || !errors.Is(err, entity.ErrConflict) || errors.Is(err, entity.ErrQuotaExhausted) {
			break
		}
		log.Debug("concurrent issuance detected, re-reading", sl.Err(err))
	}
	if err != nil {
		return nil, err
	}

	log.With(
		slog.String("registration_id", result.Registration.ID),
		slog.Bool("created", result.Created),
		sl.Secret("token", result.Instance.Token),
	).Info("coupon issued")
	return result, nil
}

func (s *Service) issueOnce(ctx context.Context, in IssueInput) (*IssueResult, error) {
	now := s.clock.Now()
	var result IssueResult

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.store.EventByID(ctx, in.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			return entity.Invalid("unknown event %s", in.EventID)
		}

		reg, err := s.store.RegistrationByCustomer(ctx, in.CustomerID, in.EventID)
		if err != nil {
			return err
		}

		if reg != nil {
			reg.ClaimData = in.ClaimData
			reg.Status = entity.RegistrationActive
			reg.UpdatedAt = now
			if in.CustomerName != "" {
				reg.CustomerName = in.CustomerName
			}
			if err = s.store.UpdateRegistration(ctx, reg); err != nil {
				return err
			}
		} else {
			reg = &entity.Registration{
				ID:           uuid.NewString(),
				CustomerID:   in.CustomerID,
				CustomerName: in.CustomerName,
				EventID:      in.EventID,
				ClaimData:    in.ClaimData,
				Status:       entity.RegistrationActive,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err = s.store.CreateRegistration(ctx, reg); err != nil {
				return err
			}
		}

		if in.Answers != nil {
			if err = s.store.ReplaceAnswers(ctx, reg.ID, in.Answers); err != nil {
				return err
			}
			reg.Answers = in.Answers
		}

		inst, err := s.store.InstanceByRegistration(ctx, reg.ID)
		if err != nil {
			return err
		}
		if inst != nil {
			result = IssueResult{Registration: *reg, Instance: *inst}
			if inst.DefinitionID != nil {
				result.Definition, err = s.store.DefinitionByID(ctx, *inst.DefinitionID)
				if err != nil {
					return err
				}
			}
			return nil
		}

		def, err := s.reserveDefinition(ctx, in.EventID, now)
		if err != nil {
			return err
		}

		token, err := s.tokens.NewToken()
		if err != nil {
			return err
		}
		inst = &entity.CouponInstance{
			ID:             uuid.NewString(),
			RegistrationID: reg.ID,
			Token:          token,
			CreatedAt:      now,
		}
		if def != nil {
			id := def.ID
			inst.DefinitionID = &id
		}
		if err = s.store.CreateInstance(ctx, inst); err != nil {
			return err
		}

		result = IssueResult{Registration: *reg, Instance: *inst, Definition: def, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Payload = Payload(result.Instance.Token)
	return &result, nil
}

// reserveDefinition picks the first active definition of the event whose issuance
// window is open and that still has quota. It returns nil when the event has no
// active definitions at all.
func (s *Service) reserveDefinition(ctx context.Context, eventID string, now time.Time) (*entity.CouponDefinition, error) {
	defs, err := s.store.DefinitionsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var active, open int
	var nextOpen, lastClose time.Time
	for i := range defs {
		def := defs[i]
		if !def.IsActive {
			continue
		}
		active++
		switch def.IssuanceWindowAt(now) {
		case entity.WindowNotYetOpen:
			if nextOpen.IsZero() || def.AllowGenerateFrom.Before(nextOpen) {
				nextOpen = def.AllowGenerateFrom
			}
			continue
		case entity.WindowClosed:
			if def.AllowGenerateUntil.After(lastClose) {
				lastClose = def.AllowGenerateUntil
			}
			continue
		}
		open++

		ok, err := s.TryReserve(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			def.TotalGenerated++
			return &def, nil
		}
	}

	switch {
	case active == 0:
		return nil, nil
	case open > 0:
		return nil, entity.ErrQuotaExhausted
	case !nextOpen.IsZero():
		return nil, entity.NewWindowError("coupon issuance has not started yet", nextOpen)
	default:
		return nil, entity.NewWindowError("coupon issuance has ended", lastClose)
	}
}
