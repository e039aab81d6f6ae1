package model

// Roles. "dev" is the administrative role; at least one must always exist.
const (
	RolUser = "user"
	RolDev  = "dev"
)

// Usuario is a row of the identity service's users table.
// The PIN is stored as given (plaintext) unless HASH_PINS is enabled, in which
// case it holds a bcrypt hash.
type Usuario struct {
	Username    string  `gorm:"column:username;primaryKey"`
	DisplayName string  `gorm:"column:displayName;not null"`
	Pin         *string `gorm:"column:pin"`
	Role        string  `gorm:"column:role;not null;default:'user'"`
}

// TableName keeps the table name used by the existing db.sqlite files.
func (Usuario) TableName() string { return "users" }

// IsDev reports whether the user holds the administrative role.
func (u Usuario) IsDev() bool { return u.Role == RolDev }
