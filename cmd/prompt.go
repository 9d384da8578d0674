package cmd

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// runForm shows fields as one form with key hints at the bottom.
func runForm(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).Run()
}

// promptSecret reads a hidden value. validate runs on every change, so the
// form cannot be submitted with a value it rejects.
func promptSecret(title, description string, validate func(string) error) (string, error) {
	var value string
	inp := huh.NewInput().
		Title(title).
		Description(description).
		EchoMode(huh.EchoModePassword).
		Validate(validate).
		Value(&value)

	if err := runForm(inp); err != nil {
		return "", err
	}
	return value, nil
}

// promptConfirm asks a yes/no question. Esc or Ctrl+C answers no.
func promptConfirm(title string, defaultYes bool) (bool, error) {
	value := defaultYes
	c := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value)

	if err := runForm(c); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return value, nil
}
