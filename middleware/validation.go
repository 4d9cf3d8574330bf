package middleware

import (
	"reflect"
	"strings"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators teaches gin's validator the domain tags and makes field
// errors report JSON names
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("orderstatus", validateOrderStatus); err != nil {
		return err
	}
	return v.RegisterValidation("department", validateDepartment)
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	_, err := models.ParseOrderStatus(fl.Field().String())
	return err == nil
}

func validateDepartment(fl validator.FieldLevel) bool {
	return models.IsDepartment(fl.Field().String())
}
