package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Lingges1210/tutorlink-sub001/internal/parse"
)

var registerOnce sync.Once

// registerValidators adds the custom binding tags to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("hhmm", validateClock)
	})
}

// validateClock accepts "HH:MM" wall-clock values, including "24:00".
func validateClock(fl validator.FieldLevel) bool {
	_, err := parse.Clock(fl.Field().String())
	return err == nil
}
