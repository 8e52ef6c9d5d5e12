package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
}

// Component is implemented by every page the TUI can push.
type Component interface {
	// Name is shown in the breadcrumb trail.
	Name() string
	Hints() []MenuHint
}
