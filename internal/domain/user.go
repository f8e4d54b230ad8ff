package domain

import "time"

// Role labels are free-form; these two have fixed meaning.
const (
	RoleAdmin   = "администратор"
	RoleDefault = "официант"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type FeedbackMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentityKind tags the session identity variant.
type IdentityKind int

const (
	IdentityAnonymous IdentityKind = iota
	IdentityGuest
	IdentityStaff
)

// Identity is the caller's resolved session state. Staff carries the
// persisted account; Guest is ephemeral and never hits the user table.
type Identity struct {
	Kind IdentityKind
	User *User
}

func Anonymous() Identity        { return Identity{Kind: IdentityAnonymous} }
func Guest() Identity            { return Identity{Kind: IdentityGuest} }
func Staff(u *User) Identity     { return Identity{Kind: IdentityStaff, User: u} }
func (i Identity) IsAuth() bool  { return i.Kind != IdentityAnonymous }
func (i Identity) IsGuest() bool { return i.Kind == IdentityGuest }

func (i Identity) IsAdmin() bool {
	return i.Kind == IdentityStaff && i.User != nil && i.User.Role == RoleAdmin
}

// Display is the JSON shape the front end expects from check/login.
// The guest serializes with id 0, matching the historical contract.
func (i Identity) Display() map[string]any {
	switch i.Kind {
	case IdentityGuest:
		return map[string]any{"id": 0, "name": "Гость", "username": "guest", "role": "guest"}
	case IdentityStaff:
		if i.User == nil {
			return nil
		}
		return map[string]any{
			"id":         i.User.ID,
			"name":       i.User.Name,
			"username":   i.User.Username,
			"role":       i.User.Role,
			"created_at": i.User.CreatedAt,
			"updated_at": i.User.UpdatedAt,
		}
	default:
		return nil
	}
}
