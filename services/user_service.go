package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"

	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/repository"
)

// UserStore is the persistence user profiles need
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	Update(ctx context.Context, user *models.User, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, q repository.UserQuery) ([]models.User, int64, error)
	Stats(ctx context.Context) (*repository.UserStats, error)
}

// UserService manages user profiles
type UserService struct {
	store    UserStore
	userInfo UserInfoProvider
}

// NewUserService creates a UserService
func NewUserService(store UserStore, userInfo UserInfoProvider) *UserService {
	return &UserService{store: store, userInfo: userInfo}
}

// CreateProfile creates the profile of the token's subject from Auth0's
// /userinfo. roleClaim is the role carried by the token; an empty or unknown
// role falls back to customer.
func (s *UserService) CreateProfile(ctx context.Context, auth0ID, accessToken, roleClaim string) (*models.User, error) {
	info, err := s.userInfo.GetUserInfo(ctx, accessToken)
	if err != nil {
		log.Printf("Failed to fetch userinfo for %s: %v", auth0ID, err)
		return nil, &Error{Kind: ErrUnavailable, Code: "AUTH0_ERROR", Message: "Failed to fetch user information from Auth0"}
	}
	if info.Email == "" {
		return nil, &Error{Kind: ErrValidation, Code: "MISSING_EMAIL", Message: "Email not provided by Auth0", Field: "email"}
	}
	if info.Name == "" {
		return nil, &Error{Kind: ErrValidation, Code: "MISSING_NAME", Message: "Name not provided by Auth0", Field: "name"}
	}

	role := models.RoleCustomer
	if models.ValidRole(roleClaim) {
		role = roleClaim
	}

	user := &models.User{
		Auth0ID:  auth0ID,
		Name:     info.Name,
		Email:    info.Email,
		Phone:    info.PhoneNumber,
		Role:     role,
		IsActive: true,
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &Error{Kind: ErrConflict, Code: "USER_EXISTS", Message: "A user with this Auth0 ID or email already exists"}
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfileInput holds the fields a user may change on their own profile.
// Empty fields are left unchanged.
type UpdateProfileInput struct {
	Name  string `json:"name" binding:"omitempty,max=100"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone" binding:"omitempty,max=30"`
}

// UpdateProfile applies in to user
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, in UpdateProfileInput) (*models.User, error) {
	updates := make(map[string]interface{})
	if in.Name != "" {
		updates["name"] = in.Name
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, validationError("email", "Email address is invalid")
		}
		updates["email"] = in.Email
	}
	if in.Phone != "" {
		updates["phone"] = in.Phone
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.store.Update(ctx, user, updates); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &Error{Kind: ErrConflict, Code: "EMAIL_EXISTS", Message: "A user with this email already exists"}
		}
		return nil, fromRepository(err, CodeUserNotFound, "User not found")
	}
	return user, nil
}

// SetRole changes the role of a user
func (s *UserService) SetRole(ctx context.Context, id uint, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, validationError("role", fmt.Sprintf("Unknown role %q", role))
	}
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err, CodeUserNotFound, "User not found")
	}
	if err := s.store.Update(ctx, user, map[string]interface{}{"role": role}); err != nil {
		return nil, fromRepository(err, CodeUserNotFound, "User not found")
	}
	return user, nil
}

// ListUsers returns one page of users for an admin
func (s *UserService) ListUsers(ctx context.Context, q repository.UserQuery) ([]models.User, int64, error) {
	if q.Role != "" && !models.ValidRole(q.Role) {
		return nil, 0, validationError("role", fmt.Sprintf("Unknown role %q", q.Role))
	}
	return s.store.List(ctx, q)
}

// GetUser returns a user to its owner or to an admin
func (s *UserService) GetUser(ctx context.Context, id uint, actor Actor) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err, CodeUserNotFound, "User not found")
	}
	if user.ID != actor.UserID && !actor.IsAdmin() {
		return nil, forbiddenError("Access denied")
	}
	return user, nil
}

// SetActive activates or deactivates a user. Admins cannot deactivate
// themselves.
func (s *UserService) SetActive(ctx context.Context, id uint, active bool, actor Actor) (*models.User, error) {
	if !active && id == actor.UserID {
		return nil, &Error{Kind: ErrValidation, Code: "CANNOT_DEACTIVATE_SELF", Message: "Cannot deactivate your own account"}
	}
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err, CodeUserNotFound, "User not found")
	}
	if err := s.store.Update(ctx, user, map[string]interface{}{"is_active": active}); err != nil {
		return nil, fromRepository(err, CodeUserNotFound, "User not found")
	}
	return user, nil
}

// Stats summarizes user accounts for the admin dashboard
func (s *UserService) Stats(ctx context.Context) (*repository.UserStats, error) {
	return s.store.Stats(ctx)
}

// Delete soft-deletes a user. Orders and reviews keep referencing it.
// Admins cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, id uint, actor Actor) error {
	if id == actor.UserID {
		return &Error{Kind: ErrValidation, Code: "CANNOT_DELETE_SELF", Message: "Cannot delete your own account"}
	}
	return fromRepository(s.store.Delete(ctx, id), CodeUserNotFound, "User not found")
}
