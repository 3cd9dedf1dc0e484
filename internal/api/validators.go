package api

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"hostel-management-backend/internal/model"
)

var registerOnce sync.Once

var hostelValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return model.ValidHostelID(int(f.Int()))
	}
	return false
}

var capacityValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return model.ValidCapacity(int(f.Int()))
	}
	return false
}

var categoryValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return fl.Field().Kind() == reflect.String && model.ComplaintCategory(fl.Field().String()).Valid()
}

// registerValidators adds the domain tags used in binding rules.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("hostel", hostelValidatorFunc)
			_ = v.RegisterValidation("capacity", capacityValidatorFunc)
			_ = v.RegisterValidation("category", categoryValidatorFunc)
		}
	})
}
