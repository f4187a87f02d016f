package types

import (
	"time"

	"github.com/google/uuid"
)

// User is the account record. PasswordHash and RefreshToken are excluded from
// every JSON response; the refresh token holds at most one value per user
// (overwritten on login/refresh, cleared on logout).
type User struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"fullName"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RefreshToken *string   `json:"-"`
	Company      *string   `json:"company,omitempty"`
	Zone         *string   `json:"zone,omitempty"`
	Branch       *string   `json:"branch,omitempty"`
	Division     *string   `json:"division,omitempty"`
	Role         *string   `json:"role,omitempty"`
	Lob          *string   `json:"lob,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UpdateAccountParams enumerates the fields a PATCH may touch. Pointers
// distinguish "not provided" from an explicit empty value; unknown JSON keys
// are rejected at decode time.
type UpdateAccountParams struct {
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Company  *string `json:"company,omitempty"`
	Zone     *string `json:"zone,omitempty"`
	Branch   *string `json:"branch,omitempty"`
	Division *string `json:"division,omitempty"`
	Role     *string `json:"role,omitempty"`
	Lob      *string `json:"lob,omitempty"`
}

// IsEmpty reports whether no field was provided at all.
func (p UpdateAccountParams) IsEmpty() bool {
	return p.FullName == nil && p.Email == nil && p.Company == nil &&
		p.Zone == nil && p.Branch == nil && p.Division == nil &&
		p.Role == nil && p.Lob == nil
}

// LookupItem is a row of one of the organizational lookup tables
// (companies, zones, branches, divisions, lines of business).
type LookupItem struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
