package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// errBack is returned when the operator types "<" to go one step back.
	errBack = errors.New("atrás")
	// ErrCancelled ends a flow without submitting.
	ErrCancelled = errors.New("operación cancelada")
	// errNoOptions is returned by Choose when there is nothing to pick.
	errNoOptions = errors.New("no hay opciones disponibles")
)

// Prompter reads line-oriented answers. EOF on input cancels.
type Prompter struct {
	r *bufio.Reader
	w io.Writer
}

func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{r: bufio.NewReader(r), w: w}
}

// Ask prints label and returns the trimmed answer. "<" yields errBack.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.w, "%s: ", label)
	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", ErrCancelled
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "<" {
		return "", errBack
	}
	return line, nil
}

// AskDefault returns def when the answer is empty.
func (p *Prompter) AskDefault(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	s, err := p.Ask(label)
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// Choose lists options and returns the chosen index.
func (p *Prompter) Choose(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errNoOptions
	}
	for {
		fmt.Fprintln(p.w, label)
		for i, o := range options {
			fmt.Fprintf(p.w, "  %d) %s\n", i+1, o)
		}
		s, err := p.Ask("Opción")
		if err != nil {
			return -1, err
		}
		n, err := strconv.Atoi(s)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintln(p.w, "Opción inválida")
	}
}

// Confirm accepts s/si/sí/y/yes as true.
func (p *Prompter) Confirm(label string) (bool, error) {
	s, err := p.Ask(label + " (s/n)")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(s) {
	case "s", "si", "sí", "y", "yes":
		return true, nil
	}
	return false, nil
}
