// Package memory is an in-process coupon store for local runs and tests.
// A transaction holds the store lock for its whole duration and restores a
// snapshot on error, so it gives the same all-or-nothing guarantees as the SQL stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"evcoupon/entity"
)

type txKey struct{}

type state struct {
	events        map[string]entity.Event
	registrations map[string]entity.Registration
	regByCustomer map[string]string
	answers       map[string][]entity.Answer
	instances     map[string]entity.CouponInstance
	instByToken   map[string]string
	instByReg     map[string]string
	definitions   map[int64]entity.CouponDefinition
	nextDefID     int64
}

type Store struct {
	mu        sync.Mutex
	st        state
	operators map[int64]entity.Operator
}

func New() *Store {
	return &Store{
		st: state{
			events:        make(map[string]entity.Event),
			registrations: make(map[string]entity.Registration),
			regByCustomer: make(map[string]string),
			answers:       make(map[string][]entity.Answer),
			instances:     make(map[string]entity.CouponInstance),
			instByToken:   make(map[string]string),
			instByReg:     make(map[string]string),
			definitions:   make(map[int64]entity.CouponDefinition),
		},
		operators: make(map[int64]entity.Operator),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock is a no-op inside WithTx, which already holds the mutex.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func customerKey(customerID, eventID string) string {
	return customerID + "|" + eventID
}

func (st state) clone() state {
	c := state{
		events:        make(map[string]entity.Event, len(st.events)),
		registrations: make(map[string]entity.Registration, len(st.registrations)),
		regByCustomer: make(map[string]string, len(st.regByCustomer)),
		answers:       make(map[string][]entity.Answer, len(st.answers)),
		instances:     make(map[string]entity.CouponInstance, len(st.instances)),
		instByToken:   make(map[string]string, len(st.instByToken)),
		instByReg:     make(map[string]string, len(st.instByReg)),
		definitions:   make(map[int64]entity.CouponDefinition, len(st.definitions)),
		nextDefID:     st.nextDefID,
	}
	for k, v := range st.events {
		c.events[k] = v
	}
	for k, v := range st.registrations {
		c.registrations[k] = v
	}
	for k, v := range st.regByCustomer {
		c.regByCustomer[k] = v
	}
	for k, v := range st.answers {
		c.answers[k] = append([]entity.Answer(nil), v...)
	}
	for k, v := range st.instances {
		c.instances[k] = v
	}
	for k, v := range st.instByToken {
		c.instByToken[k] = v
	}
	for k, v := range st.instByReg {
		c.instByReg[k] = v
	}
	for k, v := range st.definitions {
		c.definitions[k] = v
	}
	return c
}

// SaveEvent mirrors an event from the external event manager.
func (s *Store) SaveEvent(ctx context.Context, event *entity.Event) error {
	defer s.lock(ctx)()
	s.st.events[event.ID] = *event
	return nil
}

func (s *Store) EventByID(ctx context.Context, id string) (*entity.Event, error) {
	defer s.lock(ctx)()
	e, ok := s.st.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) RegistrationByID(ctx context.Context, id string) (*entity.Registration, error) {
	defer s.lock(ctx)()
	return s.registration(id), nil
}

func (s *Store) registration(id string) *entity.Registration {
	r, ok := s.st.registrations[id]
	if !ok {
		return nil
	}
	r.Answers = append([]entity.Answer(nil), s.st.answers[id]...)
	return &r
}

func (s *Store) RegistrationByCustomer(ctx context.Context, customerID, eventID string) (*entity.Registration, error) {
	defer s.lock(ctx)()
	id, ok := s.st.regByCustomer[customerKey(customerID, eventID)]
	if !ok {
		return nil, nil
	}
	return s.registration(id), nil
}

func (s *Store) CreateRegistration(ctx context.Context, reg *entity.Registration) error {
	defer s.lock(ctx)()
	key := customerKey(reg.CustomerID, reg.EventID)
	if _, ok := s.st.regByCustomer[key]; ok {
		return fmt.Errorf("registration for customer %s: %w", reg.CustomerID, entity.ErrConflict)
	}
	r := *reg
	r.Answers = nil
	s.st.registrations[r.ID] = r
	s.st.regByCustomer[key] = r.ID
	return nil
}

func (s *Store) UpdateRegistration(ctx context.Context, reg *entity.Registration) error {
	defer s.lock(ctx)()
	r, ok := s.st.registrations[reg.ID]
	if !ok {
		return fmt.Errorf("registration %s: %w", reg.ID, entity.ErrNotFound)
	}
	r.ClaimData = reg.ClaimData
	r.CustomerName = reg.CustomerName
	r.Status = reg.Status
	r.UpdatedAt = reg.UpdatedAt
	s.st.registrations[reg.ID] = r
	return nil
}

func (s *Store) SetRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus, at time.Time) error {
	defer s.lock(ctx)()
	r, ok := s.st.registrations[id]
	if !ok {
		return fmt.Errorf("registration %s: %w", id, entity.ErrNotFound)
	}
	r.Status = status
	r.UpdatedAt = at
	s.st.registrations[id] = r
	return nil
}

func (s *Store) ReplaceAnswers(ctx context.Context, registrationID string, answers []entity.Answer) error {
	defer s.lock(ctx)()
	if len(answers) == 0 {
		delete(s.st.answers, registrationID)
		return nil
	}
	s.st.answers[registrationID] = append([]entity.Answer(nil), answers...)
	return nil
}

func (s *Store) InstanceByToken(ctx context.Context, token string) (*entity.CouponInstance, error) {
	defer s.lock(ctx)()
	id, ok := s.st.instByToken[token]
	if !ok {
		return nil, nil
	}
	inst := s.st.instances[id]
	return &inst, nil
}

func (s *Store) InstanceByRegistration(ctx context.Context, registrationID string) (*entity.CouponInstance, error) {
	defer s.lock(ctx)()
	id, ok := s.st.instByReg[registrationID]
	if !ok {
		return nil, nil
	}
	inst := s.st.instances[id]
	return &inst, nil
}

func (s *Store) CreateInstance(ctx context.Context, inst *entity.CouponInstance) error {
	defer s.lock(ctx)()
	if _, ok := s.st.instByToken[inst.Token]; ok {
		return fmt.Errorf("coupon token: %w", entity.ErrConflict)
	}
	if _, ok := s.st.instByReg[inst.RegistrationID]; ok {
		return fmt.Errorf("coupon for registration %s: %w", inst.RegistrationID, entity.ErrConflict)
	}
	s.st.instances[inst.ID] = *inst
	s.st.instByToken[inst.Token] = inst.ID
	s.st.instByReg[inst.RegistrationID] = inst.ID
	return nil
}

func (s *Store) TryTransition(ctx context.Context, instanceID string, from, to entity.RedemptionState, operatorID int64, at time.Time) (bool, error) {
	if from != entity.StateUnredeemed || to != entity.StateRedeemed {
		return false, fmt.Errorf("unsupported transition %s -> %s", from, to)
	}
	defer s.lock(ctx)()
	inst, ok := s.st.instances[instanceID]
	if !ok {
		return false, nil
	}
	if inst.State() != from {
		return false, nil
	}
	redeemedAt := at
	redeemedBy := operatorID
	inst.IsRedeemed = true
	inst.RedeemedAt = &redeemedAt
	inst.RedeemedBy = &redeemedBy
	s.st.instances[instanceID] = inst
	return true, nil
}

func (s *Store) DefinitionByID(ctx context.Context, id int64) (*entity.CouponDefinition, error) {
	defer s.lock(ctx)()
	d, ok := s.st.definitions[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *Store) DefinitionByCode(ctx context.Context, eventID, code string) (*entity.CouponDefinition, error) {
	defer s.lock(ctx)()
	for _, d := range s.st.definitions {
		if d.EventID == eventID && d.Code == code {
			return &d, nil
		}
	}
	return nil, nil
}

func (s *Store) DefinitionsForEvent(ctx context.Context, eventID string) ([]entity.CouponDefinition, error) {
	defer s.lock(ctx)()
	var defs []entity.CouponDefinition
	for _, d := range s.st.definitions {
		if d.EventID == eventID {
			defs = append(defs, d)
		}
	}
	sortByRedeemFrom(defs)
	return defs, nil
}

func (s *Store) DefinitionsRedeemableBetween(ctx context.Context, from, to time.Time) ([]entity.CouponDefinition, error) {
	defer s.lock(ctx)()
	var defs []entity.CouponDefinition
	for _, d := range s.st.definitions {
		if d.IsActive && !d.RedeemUntil.Before(from) && !d.RedeemFrom.After(to) {
			defs = append(defs, d)
		}
	}
	sortByRedeemFrom(defs)
	return defs, nil
}

func sortByRedeemFrom(defs []entity.CouponDefinition) {
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].RedeemFrom.Equal(defs[j].RedeemFrom) {
			return defs[i].ID < defs[j].ID
		}
		return defs[i].RedeemFrom.Before(defs[j].RedeemFrom)
	})
}

func (s *Store) CreateDefinition(ctx context.Context, def *entity.CouponDefinition) error {
	defer s.lock(ctx)()
	for _, d := range s.st.definitions {
		if d.EventID == def.EventID && d.Code == def.Code {
			return fmt.Errorf("coupon code %s: %w", def.Code, entity.ErrConflict)
		}
	}
	s.st.nextDefID++
	def.ID = s.st.nextDefID
	s.st.definitions[def.ID] = *def
	return nil
}

func (s *Store) UpdateDefinition(ctx context.Context, def *entity.CouponDefinition) error {
	defer s.lock(ctx)()
	existing, ok := s.st.definitions[def.ID]
	if !ok {
		return fmt.Errorf("coupon %d: %w", def.ID, entity.ErrNotFound)
	}
	for _, d := range s.st.definitions {
		if d.ID != def.ID && d.EventID == def.EventID && d.Code == def.Code {
			return fmt.Errorf("coupon code %s: %w", def.Code, entity.ErrConflict)
		}
	}
	// counters are owned by TryReserve
	updated := *def
	updated.TotalGenerated = existing.TotalGenerated
	s.st.definitions[def.ID] = updated
	return nil
}

func (s *Store) SetDefinitionActive(ctx context.Context, id int64, active bool, at time.Time) error {
	defer s.lock(ctx)()
	d, ok := s.st.definitions[id]
	if !ok {
		return fmt.Errorf("coupon %d: %w", id, entity.ErrNotFound)
	}
	d.IsActive = active
	d.UpdatedAt = at
	s.st.definitions[id] = d
	return nil
}

func (s *Store) TryReserve(ctx context.Context, definitionID int64) (bool, error) {
	defer s.lock(ctx)()
	d, ok := s.st.definitions[definitionID]
	if !ok {
		return false, nil
	}
	if d.MaxQuota != nil && d.TotalGenerated >= *d.MaxQuota {
		return false, nil
	}
	d.TotalGenerated++
	s.st.definitions[definitionID] = d
	return true, nil
}

// SaveOperator stores a staff account; used to seed local runs.
func (s *Store) SaveOperator(op *entity.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operators[op.ID] = *op
	return nil
}

func (s *Store) OperatorByID(id int64) (*entity.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.operators[id]
	if !ok {
		return nil, fmt.Errorf("operator %d: %w", id, entity.ErrNotFound)
	}
	return &op, nil
}

func (s *Store) OperatorByToken(token string) (*entity.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range s.operators {
		if op.Token == token {
			return &op, nil
		}
	}
	return nil, fmt.Errorf("operator token: %w", entity.ErrNotFound)
}
