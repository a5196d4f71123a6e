package auth

import (
	"errors"
	"time"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

type CreateTokenDTO struct {
	Name      string     `json:"name" binding:"required"`
	ExpiredAt *time.Time `json:"expired_at"`
}

type UpdateProfileDTO struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Mail   *string `json:"mail"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Token   string     `json:"token"`
	Expired *time.Time `json:"expired"`
	Created time.Time  `json:"created"`
}

var (
	errUserNotFound       = errors.New("user not found")
	errWrongPassword      = errors.New("wrong password")
	errOwnerAlreadyExists = errors.New("owner already registered")
)
