package wizard

import (
	"errors"
	"math"
	"sort"

	"atmricky/internal/accounting"
)

type AllocMode string

const (
	// Single puts the whole total on one invoice ("una").
	Single AllocMode = "una"
	// Multi takes an amount per invoice ("multiple").
	Multi AllocMode = "multiple"
)

var (
	ErrInvoiceNotSelectable = errors.New("La factura no tiene saldo pendiente")
	ErrNegativeAllocation   = errors.New("El valor no puede ser negativo")
	ErrAllocationMismatch   = errors.New("La suma de la distribución debe ser igual al monto total")
)

// Allocation is one line of the abono distribution.
type Allocation struct {
	FacturaID int64 `json:"factura_id"`
	Valor     int64 `json:"valor"`
}

// Allocator assigns an abono total to invoices. It never distributes or
// rounds on its own: every amount comes from the operator.
type Allocator struct {
	invoices map[int64]accounting.Invoice
	total    int64
	mode     AllocMode
	selected int64
	values   map[int64]int64
}

// NewAllocator keeps only invoices with a pending balance.
func NewAllocator(invoices []accounting.Invoice) *Allocator {
	a := &Allocator{invoices: make(map[int64]accounting.Invoice), mode: Single, values: make(map[int64]int64)}
	for _, inv := range accounting.Pending(invoices) {
		a.invoices[inv.ID] = inv
	}
	return a
}

// Invoices lists the selectable invoices by id.
func (a *Allocator) Invoices() []accounting.Invoice {
	out := make([]accounting.Invoice, 0, len(a.invoices))
	for _, inv := range a.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *Allocator) SetTotal(total int64) { a.total = total }
func (a *Allocator) Total() int64         { return a.total }

func (a *Allocator) SetMode(m AllocMode) {
	if m != Multi {
		m = Single
	}
	a.mode = m
}

func (a *Allocator) Mode() AllocMode { return a.mode }

// Select picks the invoice for Single mode.
func (a *Allocator) Select(id int64) error {
	if _, ok := a.invoices[id]; !ok {
		return ErrInvoiceNotSelectable
	}
	a.selected = id
	return nil
}

func (a *Allocator) Selected() int64 { return a.selected }

// Set records the amount for one invoice in Multi mode; zero removes it.
func (a *Allocator) Set(id, amount int64) error {
	if _, ok := a.invoices[id]; !ok {
		return ErrInvoiceNotSelectable
	}
	if amount < 0 {
		return ErrNegativeAllocation
	}
	if amount == 0 {
		delete(a.values, id)
		return nil
	}
	a.values[id] = amount
	return nil
}

// Sum of the entered amounts, capped at math.MaxInt64.
func (a *Allocator) Sum() int64 {
	sum, ok := a.sum()
	if !ok {
		return math.MaxInt64
	}
	return sum
}

// sum reports false when the entered amounts do not fit in an int64.
func (a *Allocator) sum() (int64, bool) {
	var sum int64
	for _, v := range a.values {
		if v > math.MaxInt64-sum {
			return 0, false
		}
		sum += v
	}
	return sum, true
}

// Difference is total minus the entered sum, shown while editing.
func (a *Allocator) Difference() int64 { return a.total - a.Sum() }

// Satisfied reports whether the distribution step may be left.
func (a *Allocator) Satisfied() bool {
	if a.total <= 0 {
		return false
	}
	if a.mode == Single {
		return a.selected != 0
	}
	sum, ok := a.sum()
	return ok && len(a.values) > 0 && sum == a.total
}

// Allocate returns the final distribution, positive entries only.
func (a *Allocator) Allocate() ([]Allocation, error) {
	if !a.Satisfied() {
		return nil, ErrAllocationMismatch
	}
	if a.mode == Single {
		return []Allocation{{FacturaID: a.selected, Valor: a.total}}, nil
	}
	out := make([]Allocation, 0, len(a.values))
	for id, v := range a.values {
		out = append(out, Allocation{FacturaID: id, Valor: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FacturaID < out[j].FacturaID })
	return out, nil
}
