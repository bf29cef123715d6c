package model

// Response is the uniform envelope every request pipeline call resolves to.
// Data is meaningful only when Success is true; Error only when it is false.
type Response[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// OK wraps data in a successful Response.
func OK[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

// Fail builds a failed Response carrying err.
func Fail[T any](err *APIError) Response[T] {
	return Response[T]{Success: false, Error: err}
}

// Failf builds a failed Response from a code and message.
func Failf[T any](code ErrorKind, message string) Response[T] {
	return Fail[T](&APIError{Code: code, Message: message})
}

// Err returns the response error as an error value, or nil on success.
func (r Response[T]) Err() error {
	if r.Success || r.Error == nil {
		return nil
	}
	return r.Error
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// TokenResult is the payload of a successful credential refresh.
type TokenResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// LogoutResult is the payload of a remote logout.
type LogoutResult struct {
	Success bool `json:"success"`
}

// LoginInput carries login form fields.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterInput carries registration form fields.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}
