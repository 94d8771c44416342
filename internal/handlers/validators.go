package handlers

import (
	"github.com/filevaulthq/filevault_app/internal/utils"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators installs binding validators used by the DTOs.
// Must run once before routes are registered.
func RegisterCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return utils.IsStrongPassword(fl.Field().String())
		})
	}
}
