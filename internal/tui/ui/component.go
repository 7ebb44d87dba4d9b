package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a page of the TUI. Title labels it in the breadcrumbs.
type Component interface {
	tview.Primitive
	Title() string
}
