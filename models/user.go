package models

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"unique;not null"`
	Password  string    `gorm:"not null" json:"-"` // Never expose the encoded password
	Roles     []Role    `gorm:"many2many:user_roles;"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleNames returns the names of the user's roles in stored order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
