package dto

// Validatable is implemented by every request type. Validate runs after the
// request is fully bound and before the handler.
type Validatable interface {
	Validate() error
}
