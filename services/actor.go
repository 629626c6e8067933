package services

import "github.com/tablefire/ordering-api/models"

// Actor is the verified identity performing an operation
type Actor struct {
	UserID uint
	Role   string
}

// ActorFor builds an Actor from a resolved user
func ActorFor(user *models.User) Actor {
	return Actor{UserID: user.ID, Role: user.Role}
}

// IsStaff reports whether the actor is staff or admin
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleStaff || a.Role == models.RoleAdmin
}

// IsAdmin reports whether the actor is an admin
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) idPtr() *uint {
	id := a.UserID
	return &id
}
