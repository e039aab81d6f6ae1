// Package identity talks to the identity microservice (/usuarios, /login) and
// resolves the operator's display name for stamping mutations.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"atmricky/internal/apiclient"
	"atmricky/internal/session"
)

// User is a row of GET /usuarios; the PIN is never returned.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// NewUser is the POST /usuarios body.
type NewUser struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Pin         *string `json:"pin"`
	Role        string  `json:"role"`
}

// UserPatch is the PUT /usuarios/:username body; nil fields are not sent.
type UserPatch struct {
	DisplayName *string `json:"displayName,omitempty"`
	Pin         *string `json:"pin,omitempty"`
	Role        *string `json:"role,omitempty"`
}

type loginResponse struct {
	OK          bool   `json:"ok"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Token       string `json:"token"`
}

var (
	ErrDatosIncompletos = errors.New("Datos incompletos")
	ErrUsuarioRequerido = errors.New("Usuario requerido")
	ErrCredenciales     = errors.New("Usuario y PIN son requeridos")
	errInvalidUsersBody = errors.New("Respuesta inválida de usuarios")
)

// UsersClient wraps the identity endpoints. Mutations carry the current
// session's username in X-Actor-Username.
type UsersClient struct {
	api      *apiclient.Client
	sessions session.Store
}

func NewUsersClient(api *apiclient.Client, sessions session.Store) *UsersClient {
	return &UsersClient{api: api, sessions: sessions}
}

func (u *UsersClient) List(ctx context.Context) ([]User, error) {
	resp, err := u.api.Do(ctx, http.MethodGet, "/usuarios", nil, http.Header{"Cache-Control": {"no-cache"}})
	if err != nil {
		return nil, err
	}
	if err := apiclient.Expect2xx(resp, "No se pudo cargar usuarios"); err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(resp.Body, &users); err != nil || users == nil {
		return nil, errInvalidUsersBody
	}
	return users, nil
}

func (u *UsersClient) Create(ctx context.Context, nu NewUser) error {
	if nu.Username == "" || nu.DisplayName == "" {
		return ErrDatosIncompletos
	}
	if nu.Pin != nil && *nu.Pin == "" {
		nu.Pin = nil
	}
	if nu.Role == "" {
		nu.Role = "user"
	}
	resp, err := u.api.SendJSON(ctx, http.MethodPost, "/usuarios", nu, nil)
	if err != nil {
		return err
	}
	return apiclient.Expect2xx(resp, "No se pudo crear el usuario")
}

func (u *UsersClient) Update(ctx context.Context, username string, patch UserPatch) error {
	if username == "" {
		return ErrUsuarioRequerido
	}
	resp, err := u.api.SendJSON(ctx, http.MethodPut, "/usuarios/"+url.PathEscape(username), patch, u.actorHeader())
	if err != nil {
		return err
	}
	return apiclient.Expect2xx(resp, "No se pudo actualizar el usuario")
}

func (u *UsersClient) Delete(ctx context.Context, username string) error {
	if username == "" {
		return ErrUsuarioRequerido
	}
	resp, err := u.api.Do(ctx, http.MethodDelete, "/usuarios/"+url.PathEscape(username), nil, u.actorHeader())
	if err != nil {
		return err
	}
	return apiclient.Expect2xx(resp, "No se pudo eliminar el usuario")
}

// Login checks the PIN and, on success, writes the session slot.
func (u *UsersClient) Login(ctx context.Context, username, pin string) (*session.Session, error) {
	if username == "" || pin == "" {
		return nil, ErrCredenciales
	}
	resp, err := u.api.SendJSON(ctx, http.MethodPost, "/login", map[string]string{"username": username, "pin": pin}, nil)
	if err != nil {
		return nil, err
	}
	if err := apiclient.Expect2xx(resp, "No se pudo iniciar sesión"); err != nil {
		return nil, err
	}
	var lr loginResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return nil, fmt.Errorf("identity: decode login: %w", err)
	}
	s := session.New(lr.Username, lr.DisplayName, lr.Role, lr.Token)
	if err := u.sessions.Write(s); err != nil {
		return nil, fmt.Errorf("identity: save session: %w", err)
	}
	return &s, nil
}

// Logout clears the session slot.
func (u *UsersClient) Logout() error {
	return u.sessions.Clear()
}

func (u *UsersClient) actorHeader() http.Header {
	h := http.Header{}
	actor := ""
	if s, err := u.sessions.Read(); err == nil && s != nil {
		actor = s.Username
		if s.Token != "" {
			h.Set("Authorization", "Bearer "+s.Token)
		}
	}
	h.Set("X-Actor-Username", actor)
	return h
}
