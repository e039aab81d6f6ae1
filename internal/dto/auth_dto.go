package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Pin      string `json:"pin"      validate:"required"`
}

type CrearUsuarioRequest struct {
	Username    string  `json:"username"    validate:"required,max=150"`
	DisplayName string  `json:"displayName" validate:"required,max=100"`
	Pin         *string `json:"pin"`
	Role        *string `json:"role"        validate:"omitempty,oneof=user dev"`
}

// ActualizarUsuarioRequest is a partial update: nil fields are left untouched.
type ActualizarUsuarioRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	Pin         *string `json:"pin"`
	Role        *string `json:"role"        validate:"omitempty,oneof=user dev"`
}

// Empty reports whether the request carries nothing to update.
func (r ActualizarUsuarioRequest) Empty() bool {
	return r.DisplayName == nil && r.Pin == nil && r.Role == nil
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// UsuarioResponse never carries the PIN.
type UsuarioResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type LoginResponse struct {
	OK          bool   `json:"ok"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	// Token is a signed session token; older clients ignore it.
	Token string `json:"token,omitempty"`
}
