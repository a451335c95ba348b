package models

// Roles recognised by the credential file
const (
	RoleAdmin    = "admin"
	RoleStandard = "standard"
)

// Credentials structure for login request
type Credentials struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Account is a statically configured user. It is never created or removed at runtime.
type Account struct {
	Name        string   `json:"name" yaml:"name"`
	Password    string   `json:"-" yaml:"password"`          // plaintext or bcrypt hash
	Role        string   `json:"role" yaml:"role"`           // admin or standard
	DailyCap    *float64 `json:"daily_cap" yaml:"daily_cap"` // nil means unlimited
	DisplayName string   `json:"display_name,omitempty" yaml:"display_name"`
}

// IsAdmin reports whether the account bypasses every spending cap.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Label returns the name shown in greetings and chat bubbles.
func (a Account) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Name
}
