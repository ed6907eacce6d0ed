package domain

// Prompt is a named template with {placeholder} variables, identified by
// (Category, Name, UserID).
type Prompt struct {
	Category string
	Name     string
	UserID   string
	Body     string
}
