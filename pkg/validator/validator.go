package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Custom validations used by request bindings:
//
//	severity:   one of info/warning/critical
//	channelset: non-empty set over {chat, email}
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("severity", validSeverity); err != nil {
		return err
	}
	return v.RegisterValidation("channelset", validChannelSet)
}

func validSeverity(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "info", "warning", "critical":
		return true
	}
	return false
}

func validChannelSet(fl validator.FieldLevel) bool {
	channels, ok := fl.Field().Interface().([]string)
	if !ok || len(channels) == 0 {
		return false
	}

	seen := make(map[string]bool, len(channels))
	for _, c := range channels {
		if c != "chat" && c != "email" {
			return false
		}
		if seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}
