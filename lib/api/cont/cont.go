package cont

import (
	"context"

	"evcoupon/entity"
)

type ctxKey string

const (
	OperatorKey ctxKey = "operator"
	CustomerKey ctxKey = "customer"
)

func PutOperator(c context.Context, op *entity.Operator) context.Context {
	return context.WithValue(c, OperatorKey, *op)
}

// GetOperator returns nil when the request was not authenticated.
func GetOperator(c context.Context) *entity.Operator {
	op, ok := c.Value(OperatorKey).(entity.Operator)
	if !ok {
		return nil
	}
	return &op
}

func PutCustomer(c context.Context, customerID string) context.Context {
	return context.WithValue(c, CustomerKey, customerID)
}

func GetCustomer(c context.Context) string {
	id, _ := c.Value(CustomerKey).(string)
	return id
}
