package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"sabor_menu/internal/domain"
)

// Accounts owns staff identity: login checks, user management, and the
// one-time admin bootstrap. Passwords only ever exist as bcrypt hashes.
type Accounts struct {
	users domain.UserRepository
}

func NewAccounts(users domain.UserRepository) *Accounts {
	return &Accounts{users: users}
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// Login returns the matching user, or ErrUnauthorized for a bad
// username or password. The two cases are deliberately not told apart.
func (a *Accounts) Login(ctx context.Context, username, password string) (domain.User, error) {
	if username == "" || password == "" {
		return domain.User{}, domain.Validationf("username and password are required")
	}
	u, err := a.users.GetUserByUsername(ctx, username)
	if err == domain.ErrNotFound {
		return domain.User{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, domain.ErrUnauthorized
	}
	return u, nil
}

func (a *Accounts) Users(ctx context.Context) ([]domain.User, error) {
	return a.users.ListUsers(ctx)
}

func (a *Accounts) Get(ctx context.Context, id int64) (domain.User, error) {
	return a.users.GetUser(ctx, id)
}

func (a *Accounts) Create(ctx context.Context, name, username, password, role string) (domain.User, error) {
	if name == "" || username == "" || password == "" {
		return domain.User{}, domain.Validationf("name, username and password are required")
	}
	if strings.TrimSpace(role) == "" {
		role = domain.RoleDefault
	}
	hash, err := HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	return a.users.CreateUser(ctx, domain.User{
		Name:         name,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
}

// UpdateRequest carries the optional fields of a user update; nil means
// leave as-is. An empty password is also left as-is.
type UpdateRequest struct {
	Name     *string
	Username *string
	Password *string
	Role     *string
}

func (a *Accounts) Update(ctx context.Context, id int64, req UpdateRequest) (domain.User, error) {
	u, err := a.users.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Username != nil && *req.Username != u.Username {
		if _, err := a.users.GetUserByUsername(ctx, *req.Username); err == nil {
			return domain.User{}, domain.ErrConflict
		} else if err != domain.ErrNotFound {
			return domain.User{}, err
		}
		u.Username = *req.Username
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return domain.User{}, err
		}
		u.PasswordHash = hash
	}
	if req.Role != nil {
		if strings.TrimSpace(*req.Role) == "" {
			u.Role = domain.RoleDefault
		} else {
			u.Role = *req.Role
		}
	}
	if err := a.users.UpdateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Delete refuses to remove the acting user's own account.
func (a *Accounts) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return domain.Validationf("cannot delete your own account")
	}
	ok, err := a.users.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// BootstrapAdmin creates the first administrator from deployment
// configuration, only when the user table is empty.
func (a *Accounts) BootstrapAdmin(ctx context.Context, name, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	n, err := a.users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if name == "" {
		name = username
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = a.users.CreateUser(ctx, domain.User{
		Name:         name,
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err == nil {
		log.Info().Str("username", username).Msg("bootstrap admin created")
	}
	return err
}
