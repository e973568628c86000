package domain

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPasswordTooShort    = errors.New("password too short")
	ErrInvalidInput        = errors.New("invalid input")
)
