package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/1broseidon/viewhost/internal/viewport"
)

type promptKind int

const (
	promptURL promptKind = iota
	promptScan
)

// prompt is a one-field form. It is held by pointer so the bound value
// survives bubbletea's model copies.
type prompt struct {
	kind  promptKind
	value string
	form  *huh.Form
}

func newPrompt(kind promptKind, initial string, width int) *prompt {
	p := &prompt{kind: kind, value: initial}

	input := huh.NewInput().Key("value").Value(&p.value)
	switch kind {
	case promptURL:
		input = input.
			Title("URL").
			Description("Absolute http(s) URL to load in the viewport").
			Validate(func(s string) error {
				_, err := viewport.ValidateURL(s)
				return err
			})
	case promptScan:
		input = input.
			Title("Barcode").
			Description("Sent to the page's scanBarcode handler").
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("barcode is empty")
				}
				return nil
			})
	}

	w := width - 4
	if w < 40 {
		w = 40
	}
	p.form = huh.NewForm(huh.NewGroup(input)).
		WithShowHelp(false).
		WithWidth(w)
	return p
}
