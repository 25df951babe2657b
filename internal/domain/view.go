package domain

// View selects which screen the shell shows.
type View string

const (
	ViewProfile View = "profile"
	ViewEdit    View = "edit"
	ViewSupport View = "support"
)

// ParseView validates a view name.
func ParseView(name string) (View, bool) {
	switch v := View(name); v {
	case ViewProfile, ViewEdit, ViewSupport:
		return v, true
	}
	return "", false
}
