package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type SuccessResponse struct {
	Success string `json:"success"`
}

// ReadRequest toggles a notification's read flag; defaults to read.
type ReadRequest struct {
	IsRead *bool `json:"is_read"`
}

func (rr *ReadRequest) Read() bool {
	if rr.IsRead == nil {
		return true
	}
	return *rr.IsRead
}
