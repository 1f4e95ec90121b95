package domain

import "time"

// ApplicationKind selects which partner program an application is for.
type ApplicationKind string

const (
	KindVendor      ApplicationKind = "vendor"
	KindDistributor ApplicationKind = "distributor"
)

func (k ApplicationKind) Valid() bool { return k == KindVendor || k == KindDistributor }

// Role is the user role granted once an application of this kind is approved.
func (k ApplicationKind) Role() Role {
	if k == KindDistributor {
		return RoleDistributor
	}
	return RoleVendor
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

type Application struct {
	ID           string            `json:"id"`
	Kind         ApplicationKind   `json:"kind"`
	UserID       string            `json:"userId"`
	BusinessName string            `json:"businessName"`
	Phone        string            `json:"phone"`
	Region       string            `json:"region,omitempty"`
	Status       ApplicationStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// LinkedUserState is the user record state that must accompany an
// application status: only approved applicants have an active account,
// and the account always carries the partner role of its program.
func LinkedUserState(kind ApplicationKind, status ApplicationStatus) (active bool, role Role) {
	return status == ApplicationApproved, kind.Role()
}
