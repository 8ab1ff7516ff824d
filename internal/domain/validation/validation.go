// Package validation runs tag based field rules on domain entities and reports every
// violation with the JSON name of the offending field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error { return ErrValidation }

// New builds a single-field error for rules that tags cannot express.
func New(field, rule, message string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Rule: rule, Message: message}}}
}

var (
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
	whatsappRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

	once     sync.Once
	instance *validator.Validate
)

// Engine returns the shared validator with the custom rules registered.
func Engine() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		Register(instance)
	})

	return instance
}

// Register installs JSON field naming and the custom rules on v. The HTTP layer calls
// it on the binding validator so request errors name fields the same way.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})

	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("whatsapp", func(fl validator.FieldLevel) bool {
		return whatsappRe.MatchString(fl.Field().String())
	})
}

// FromValidator converts validator errors into *Error. Other errors come back unchanged.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: Message(fe.Tag(), fe.Param()),
		})
	}
	return out
}

// fieldPath drops the root struct name from the namespace: "Req.items[0].name" -> "items[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok && rest != "" {
		return rest
	}
	return fe.Field()
}

// Struct validates s and returns *Error when any rule fails.
func Struct(s any) error {
	if err := Engine().Struct(s); err != nil {
		return FromValidator(err)
	}
	return nil
}

// Message renders a short human readable explanation of a failed rule.
func Message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "gtfield":
		return "must be after " + param
	case "digits":
		return "must contain only digits"
	case "whatsapp":
		return "must be a phone number of 10 to 15 digits"
	case "latitude", "longitude":
		return "must be a valid " + rule
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
