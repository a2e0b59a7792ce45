package features

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"evcoupon/entity"
	"evcoupon/impl/coupon"
	"evcoupon/internal/storage/memory"
	"evcoupon/lib/clock"

	"github.com/cucumber/godog"
)

const eventID = "6f1c1c2e-3c1d-4f7a-9a57-0f4e2b1d9c11"

type redemptionTestContext struct {
	store  *memory.Store
	def    *entity.CouponDefinition
	token  string
	result *entity.RedemptionResult
	err    error
}

func (c *redemptionTestContext) reset() {
	c.store = memory.New()
	_ = c.store.SaveEvent(context.Background(), &entity.Event{ID: eventID, Title: "Feature event"})
	_ = c.store.SaveOperator(&entity.Operator{ID: 7, Name: "Seven", Token: "t7", Role: entity.RoleOperator})
	_ = c.store.SaveOperator(&entity.Operator{ID: 9, Name: "Nine", Token: "t9", Role: entity.RoleOperator})
	c.def = nil
	c.token = ""
	c.result = nil
	c.err = nil
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

func (c *redemptionTestContext) aCouponDefinitionRedeemableFromUntil(from, until string) error {
	redeemFrom, err := parseTime(from)
	if err != nil {
		return err
	}
	redeemUntil, err := parseTime(until)
	if err != nil {
		return err
	}
	c.def = &entity.CouponDefinition{
		EventID:            eventID,
		Name:               "Welcome drink",
		Code:               "DRINK",
		AllowGenerateFrom:  redeemFrom.AddDate(0, -1, 0),
		AllowGenerateUntil: redeemFrom,
		RedeemFrom:         redeemFrom,
		RedeemUntil:        redeemUntil,
		IsActive:           true,
	}
	return c.store.CreateDefinition(context.Background(), c.def)
}

func (c *redemptionTestContext) anUnredeemedCouponWithToken(token string) error {
	ctx := context.Background()
	reg := &entity.Registration{
		ID:         "reg-1",
		CustomerID: "customer-1",
		EventID:    eventID,
		Status:     entity.RegistrationActive,
	}
	if err := c.store.CreateRegistration(ctx, reg); err != nil {
		return err
	}
	id := c.def.ID
	c.token = token
	return c.store.CreateInstance(ctx, &entity.CouponInstance{
		ID:             "inst-1",
		DefinitionID:   &id,
		RegistrationID: reg.ID,
		Token:          token,
	})
}

func (c *redemptionTestContext) scan(operatorID int, role entity.Role, token, at string, checkOnly bool) error {
	now, err := parseTime(at)
	if err != nil {
		return err
	}
	svc := coupon.New(c.store, clock.Fixed(now), nil, coupon.WithOperators(c.store))
	c.result, c.err = svc.Redeem(context.Background(), coupon.RedeemInput{
		Token:      token,
		OperatorID: int64(operatorID),
		Role:       role,
		CheckOnly:  checkOnly,
	})
	return nil
}

func (c *redemptionTestContext) operatorScansAt(operatorID int, token, at string) error {
	return c.scan(operatorID, entity.RoleOperator, token, at, false)
}

func (c *redemptionTestContext) operatorChecksAt(operatorID int, token, at string) error {
	return c.scan(operatorID, entity.RoleOperator, token, at, true)
}

func (c *redemptionTestContext) viewerScansAt(operatorID int, token, at string) error {
	return c.scan(operatorID, entity.RoleViewer, token, at, false)
}

func (c *redemptionTestContext) theOutcomeIs(outcome string) error {
	if c.err != nil {
		return fmt.Errorf("expected outcome but got error: %v", c.err)
	}
	if string(c.result.Outcome) != outcome {
		return fmt.Errorf("expected outcome %q, got %q (%s)", outcome, c.result.Outcome, c.result.Message)
	}
	return nil
}

func (c *redemptionTestContext) theCouponWasRedeemedAtByOperator(at string, operatorID int) error {
	want, err := parseTime(at)
	if err != nil {
		return err
	}
	inst, err := c.store.InstanceByToken(context.Background(), c.token)
	if err != nil {
		return err
	}
	if !inst.IsRedeemed || inst.RedeemedAt == nil || inst.RedeemedBy == nil {
		return errors.New("expected coupon to be redeemed")
	}
	if !inst.RedeemedAt.Equal(want) {
		return fmt.Errorf("expected redeemed at %s, got %s", want, inst.RedeemedAt)
	}
	if *inst.RedeemedBy != int64(operatorID) {
		return fmt.Errorf("expected redeemed by %d, got %d", operatorID, *inst.RedeemedBy)
	}
	if c.result.RedeemedByID == nil || *c.result.RedeemedByID != int64(operatorID) {
		return fmt.Errorf("expected result to report operator %d", operatorID)
	}
	return nil
}

func (c *redemptionTestContext) theCouponIsStillUnredeemed() error {
	inst, err := c.store.InstanceByToken(context.Background(), c.token)
	if err != nil {
		return err
	}
	if inst.IsRedeemed || inst.RedeemedAt != nil || inst.RedeemedBy != nil {
		return errors.New("expected coupon to stay unredeemed")
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &redemptionTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a coupon definition redeemable from "([^"]*)" until "([^"]*)"$`, tc.aCouponDefinitionRedeemableFromUntil)
	ctx.Step(`^an unredeemed coupon with token "([^"]*)"$`, tc.anUnredeemedCouponWithToken)

	// When steps
	ctx.Step(`^operator (\d+) scans "([^"]*)" at "([^"]*)"$`, tc.operatorScansAt)
	ctx.Step(`^operator (\d+) checks "([^"]*)" at "([^"]*)"$`, tc.operatorChecksAt)
	ctx.Step(`^viewer (\d+) scans "([^"]*)" at "([^"]*)"$`, tc.viewerScansAt)

	// Then steps
	ctx.Step(`^the outcome is "([^"]*)"$`, tc.theOutcomeIs)
	ctx.Step(`^the coupon was redeemed at "([^"]*)" by operator (\d+)$`, tc.theCouponWasRedeemedAtByOperator)
	ctx.Step(`^the coupon is still unredeemed$`, tc.theCouponIsStillUnredeemed)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"redemption.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
