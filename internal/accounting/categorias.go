package accounting

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Tipo is the transaction direction a category belongs to.
type Tipo string

const (
	Ingreso Tipo = "INGRESO"
	Egreso  Tipo = "EGRESO"
)

func (t Tipo) Valid() bool { return t == Ingreso || t == Egreso }

type Category struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Tipo   Tipo   `json:"tipo"`
}

// CategoryPatch is a partial update; nil fields are not sent.
type CategoryPatch struct {
	Nombre *string `json:"nombre,omitempty"`
	Tipo   *Tipo   `json:"tipo,omitempty"`
}

var (
	ErrNombreTipoRequeridos = errors.New("Nombre y tipo requeridos")
	ErrTipoInvalido         = errors.New("Tipo inválido")
	ErrIDRequerido          = errors.New("ID requerido")
)

var unknownColumn = regexp.MustCompile(`(?i)1054|Unknown column`)

// normalizeServerError rewrites MySQL "unknown column" failures into an
// actionable message; other texts pass through.
func normalizeServerError(txt, fallback string) error {
	msg := strings.TrimSpace(txt)
	if unknownColumn.MatchString(msg) {
		return errors.New("El servidor intentó usar una columna inexistente (por ejemplo, created_at). Pide al backend ajustar el SQL o agregar la columna.")
	}
	if msg == "" {
		msg = fallback
	}
	return errors.New(msg)
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	return getList[Category](ctx, c.api, "/api/categorias", "Error al cargar categorías")
}

// CategoriesByTipo filters by tipo and sorts by nombre.
func CategoriesByTipo(all []Category, tipo Tipo) []Category {
	out := make([]Category, 0, len(all))
	for _, cat := range all {
		if cat.Tipo == tipo {
			out = append(out, cat)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Nombre) < strings.ToLower(out[j].Nombre)
	})
	return out
}

func (c *Client) CreateCategory(ctx context.Context, nombre string, tipo Tipo) error {
	if strings.TrimSpace(nombre) == "" || tipo == "" {
		return ErrNombreTipoRequeridos
	}
	if !tipo.Valid() {
		return ErrTipoInvalido
	}
	resp, err := c.api.SendJSON(ctx, http.MethodPost, "/api/categorias", Category{Nombre: nombre, Tipo: tipo}, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return normalizeServerError(resp.Text(), "Error al crear categoría")
	}
	return nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, patch CategoryPatch) error {
	if id == 0 {
		return ErrIDRequerido
	}
	if patch.Tipo != nil && !patch.Tipo.Valid() {
		return ErrTipoInvalido
	}
	resp, err := c.api.SendJSON(ctx, http.MethodPut, "/api/categorias/"+strconv.FormatInt(id, 10), patch, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return normalizeServerError(resp.Text(), "Error al actualizar categoría")
	}
	return nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	if id == 0 {
		return ErrIDRequerido
	}
	resp, err := c.api.Do(ctx, http.MethodDelete, "/api/categorias/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return normalizeServerError(resp.Text(), "Error al eliminar categoría")
	}
	return nil
}

