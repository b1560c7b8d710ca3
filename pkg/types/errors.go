package types

import "errors"

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrAdminNotFound = errors.New("admin not found")
)
