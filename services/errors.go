package services

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("username already exists")
	ErrInvalidInput   = errors.New("invalid request")
	ErrRoleNotFound   = errors.New("role not found")
	ErrPasswordEncode = errors.New("could not encode password")
)
