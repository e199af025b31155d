package apperr

import "fmt"

// ServiceError is a uniform error shape carrying which service/operation
// produced the failure, alongside the underlying cause.
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

// Error formats as "[Service.Operation] error message".
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s.%s] %v", e.Service, e.Operation, e.Err)
}

// Unwrap supports errors.Is/errors.As against the original error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WrapError creates a ServiceError carrying service/operation context.
// Returns nil if err is nil.
func WrapError(service, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Service: service, Operation: operation, Err: err}
}
