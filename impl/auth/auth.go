package auth

import (
	"errors"
	"fmt"
	"strings"

	"evcoupon/entity"
)

type Database interface {
	OperatorByToken(token string) (*entity.Operator, error)
}

type Auth struct {
	db Database
}

func New(db Database) *Auth {
	return &Auth{db: db}
}

// OperatorByToken resolves a bearer token. Unknown tokens yield entity.ErrForbidden.
func (a Auth) OperatorByToken(token string) (*entity.Operator, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", entity.ErrForbidden)
	}
	op, err := a.db.OperatorByToken(token)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown token", entity.ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("%w: unknown token", entity.ErrForbidden)
	}
	return op, nil
}
