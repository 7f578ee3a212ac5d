package repository

// Contact represents a contacts row.
type Contact struct {
	ID    int64
	Name  string
	Phone string
}
