package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/testutil"
	"gorm.io/gorm"
)

func deactivate(t *testing.T, db *gorm.DB, user *models.User) {
	t.Helper()
	require.NoError(t, db.Model(user).Update("is_active", false).Error)
}

func TestUserRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice", models.RoleCustomer)
	bob := testutil.CreateUser(t, db, "bob", models.RoleStaff)
	testutil.CreateUser(t, db, "carol", models.RoleAdmin)
	deactivate(t, db, bob)

	inactive := false
	active := true
	tests := []struct {
		name     string
		query    repository.UserQuery
		expected []string
		total    int64
	}{
		{"All users newest first", repository.UserQuery{}, []string{"carol", "bob", "alice"}, 3},
		{"By role", repository.UserQuery{Role: models.RoleStaff}, []string{"bob"}, 1},
		{"Inactive only", repository.UserQuery{IsActive: &inactive}, []string{"bob"}, 1},
		{"Active only", repository.UserQuery{IsActive: &active}, []string{"carol", "alice"}, 2},
		{"Search is case-insensitive on name", repository.UserQuery{Search: "ALI"}, []string{"alice"}, 1},
		{"Search matches email", repository.UserQuery{Search: "carol@example"}, []string{"carol"}, 1},
		{"Paged", repository.UserQuery{Page: repository.Page{Page: 2, Limit: 2}}, []string{"alice"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.Page = q.Page.Normalize()
			users, total, err := repo.List(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)

			ids := make([]string, 0, len(users))
			for _, u := range users {
				ids = append(ids, u.Auth0ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}

	users, _, err := repo.List(ctx, repository.UserQuery{Search: "alice", Page: repository.Page{}.Normalize()})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)
}

func TestUserRepository_Stats(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.UserSummary{}, stats.Summary)
	assert.Equal(t, map[string]int64{
		models.RoleCustomer: 0,
		models.RoleStaff:    0,
		models.RoleAdmin:    0,
	}, stats.RoleBreakdown)
	assert.Empty(t, stats.RecentUsers)

	names := []string{"u1", "u2", "u3", "u4", "u5", "u6"}
	var created []*models.User
	for _, name := range names {
		created = append(created, testutil.CreateUser(t, db, name, models.RoleCustomer))
	}
	testutil.CreateUser(t, db, "chef", models.RoleStaff)
	deactivate(t, db, created[0])
	deactivate(t, db, created[1])

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.UserSummary{Total: 7, Active: 5, Inactive: 2}, stats.Summary)
	assert.Equal(t, int64(6), stats.RoleBreakdown[models.RoleCustomer])
	assert.Equal(t, int64(1), stats.RoleBreakdown[models.RoleStaff])
	assert.Equal(t, int64(0), stats.RoleBreakdown[models.RoleAdmin])

	require.Len(t, stats.RecentUsers, 5)
	assert.Equal(t, "chef", stats.RecentUsers[0].Auth0ID)
	assert.Equal(t, "u2", stats.RecentUsers[4].Auth0ID)
}
