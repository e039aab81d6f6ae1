package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_ChooseRetriesInvalid(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("9\nx\n2\n"), &out)
	i, err := p.Choose("Caja", []string{"Efectivo", "Cuenta bancaria"})
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, 2, strings.Count(out.String(), "Opción inválida"))
}

func TestPrompter_BackAndEOF(t *testing.T) {
	p := NewPrompter(strings.NewReader("<\n"), &bytes.Buffer{})
	_, err := p.Ask("Monto")
	assert.ErrorIs(t, err, errBack)
	_, err = p.Ask("Monto")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestPrompter_LastLineWithoutNewline(t *testing.T) {
	p := NewPrompter(strings.NewReader("s"), &bytes.Buffer{})
	ok, err := p.Confirm("¿Confirmar?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrompter_AskDefault(t *testing.T) {
	p := NewPrompter(strings.NewReader("\n"), &bytes.Buffer{})
	v, err := p.AskDefault("Motivo", "RETIRO")
	require.NoError(t, err)
	assert.Equal(t, "RETIRO", v)
}

func TestPrompter_ChooseWithoutOptions(t *testing.T) {
	p := NewPrompter(strings.NewReader("1\n"), &bytes.Buffer{})
	_, err := p.Choose("Punto de venta", nil)
	assert.ErrorIs(t, err, errNoOptions)
}
