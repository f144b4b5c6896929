// Package directory defines the narrow contracts this service has with the
// residence/user directory and the notification service. Both live outside
// this codebase; existence validation happens at the caller.
package directory

import "context"

// Role values recognized by the approval flow.
const (
	RoleAdmin   = "admin"
	RoleFinance = "finance"
	RoleManager = "manager"
	RoleTenant  = "tenant"
)

// Actor identifies the user performing an operation, for stamping on
// transactions, expenses and history entries.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CanApprove reports whether the actor may approve or reject requests.
func (a Actor) CanApprove() bool {
	return a.Role == RoleAdmin || a.Role == RoleFinance
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Residence identifies the property a request or posting belongs to.
type Residence struct {
	ID string `json:"id"`
}

// Notifier delivers approval/rejection outcomes. Delivery is fire-and-forget:
// callers log errors and never fail an operation because of one.
type Notifier interface {
	NotifyApproved(ctx context.Context, requestID string, actor Actor) error
	NotifyRejected(ctx context.Context, requestID string, actor Actor, reason string) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyApproved(ctx context.Context, requestID string, actor Actor) error {
	return nil
}

func (NopNotifier) NotifyRejected(ctx context.Context, requestID string, actor Actor, reason string) error {
	return nil
}
