package auth

import "context"

// Operator is the authenticated caller of /v1.
type Operator struct {
	ID   string
	Role string
}

type operatorKey struct{}

func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom returns ok=false when no operator with an id is attached.
func OperatorFrom(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	if !ok || op.ID == "" {
		return Operator{}, false
	}
	return op, true
}
