package repository

import (
	"context"

	"github.com/tablefire/ordering-api/models"
	"gorm.io/gorm"
)

// UserRepository stores user profiles keyed by their Auth0 subject
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. ErrDuplicate when the Auth0 ID or email is taken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID loads a user by primary key
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByAuth0ID loads a user by the token subject
func (r *UserRepository) FindByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// Update writes the given columns of a user
func (r *UserRepository) Update(ctx context.Context, user *models.User, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(user).Updates(updates)
	if res.Error != nil {
		return translateError(res.Error)
	}
	return r.db.WithContext(ctx).First(user, user.ID).Error
}

// Delete soft-deletes a user
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of users matching q, newest first
func (r *UserRepository) List(ctx context.Context, q UserQuery) ([]models.User, int64, error) {
	var total int64
	if err := q.filter(r.db.WithContext(ctx).Model(&models.User{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []models.User{}
	err := q.Page.apply(q.filter(r.db.WithContext(ctx))).
		Order("created_at DESC, id DESC").
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UserSummary counts accounts by activation state
type UserSummary struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// UserStats is the admin overview of user accounts
type UserStats struct {
	Summary       UserSummary      `json:"summary"`
	RoleBreakdown map[string]int64 `json:"role_breakdown"`
	RecentUsers   []models.User    `json:"recent_users"`
}

const recentUsersLimit = 5

// Stats counts users by state and role and lists the newest accounts
func (r *UserRepository) Stats(ctx context.Context) (*UserStats, error) {
	stats := &UserStats{
		RoleBreakdown: map[string]int64{
			models.RoleCustomer: 0,
			models.RoleStaff:    0,
			models.RoleAdmin:    0,
		},
		RecentUsers: []models.User{},
	}
	users := func() *gorm.DB { return r.db.WithContext(ctx).Model(&models.User{}) }

	if err := users().Count(&stats.Summary.Total).Error; err != nil {
		return nil, err
	}
	if err := users().Where("is_active = ?", true).Count(&stats.Summary.Active).Error; err != nil {
		return nil, err
	}
	stats.Summary.Inactive = stats.Summary.Total - stats.Summary.Active

	var roles []struct {
		Role  string
		Count int64
	}
	if err := users().Select("role, COUNT(*) AS count").Group("role").Scan(&roles).Error; err != nil {
		return nil, err
	}
	for _, row := range roles {
		stats.RoleBreakdown[row.Role] = row.Count
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(recentUsersLimit).
		Find(&stats.RecentUsers).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
