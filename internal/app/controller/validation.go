package controller

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var couponCodePattern = regexp.MustCompile(`^\s*[A-Za-z0-9_-]{3,32}\s*$`)

// RegisterValidators installs the custom binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("couponcode", validateCouponCode)
}

func validateCouponCode(fl validator.FieldLevel) bool {
	return couponCodePattern.MatchString(fl.Field().String())
}
