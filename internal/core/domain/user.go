package domain

type UserID string

// UserRole gates what a control API caller may do.
type UserRole string

const (
	RoleViewer   UserRole = "viewer"
	RoleOperator UserRole = "operator"
)
