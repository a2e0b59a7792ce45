package entity

// Role controls what an authenticated staff member may do.
// Role hierarchy: RoleViewer < RoleOperator < RoleAdmin.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Operator is a staff account scanning coupons at the venue or managing coupons.
type Operator struct {
	ID    int64  `json:"id" bson:"id" validate:"required,min=1"`
	Name  string `json:"name" bson:"name" validate:"required"`
	Email string `json:"email" bson:"email" validate:"omitempty,email"`
	Token string `json:"-" bson:"token" validate:"required,min=1"`
	Role  Role   `json:"role" bson:"role" validate:"required,oneof=viewer operator admin"`
}

func (r Role) CanRedeem() bool {
	return r == RoleOperator || r == RoleAdmin
}

func (o *Operator) IsAdmin() bool {
	return o.Role == RoleAdmin
}

func (o *Operator) CanRedeem() bool {
	return o.Role.CanRedeem()
}
