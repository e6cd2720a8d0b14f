// Package registration validates team registration requests.
package registration

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roboheist/backend/internal/domain/model"
)

// ErrInvalid is the kind shared by every ValidationError.
var ErrInvalid = errors.New("invalid registration")

// Error types reported per field.
const (
	TypeMissing        = "missing"
	TypeStringTooShort = "string_too_short"
	TypeStringTooLong  = "string_too_long"
	TypeValueError     = "value_error"
	TypeJSONInvalid    = "json_invalid"
	TypeJSONType       = "type_error"
)

// Request is the body of POST /api/register. Pointers distinguish a missing
// field from an empty one.
type Request struct {
	Team        *string  `json:"team"        validate:"required,min=2,max=64"`
	Institution *string  `json:"institution" validate:"required,min=2,max=128"`
	Email       *string  `json:"email"       validate:"required,email"`
	Members     Members  `json:"members"`
}

// Members is the optional member list. It may be omitted but not null.
type Members []string

// UnmarshalJSON rejects an explicit null.
func (m *Members) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return &json.UnmarshalTypeError{Value: "null", Type: reflect.TypeOf([]string(nil)), Field: "members"}
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*m = list
	return nil
}

// FieldError describes one offending input location.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = strings.Join(f.Loc, ".") + ": " + f.Msg
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports ErrInvalid so callers can use errors.Is.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// Body builds a ValidationError for a problem with the request body itself.
func Body(msg, typ string, field ...string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{
		Loc:  append([]string{"body"}, field...),
		Msg:  msg,
		Type: typ,
	}}}
}

// Validator checks requests against their struct tags. Safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate returns the accepted registration or a *ValidationError.
func (val *Validator) Validate(req Request) (model.Registration, error) {
	if err := val.v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return model.Registration{}, fmt.Errorf("validate registration: %w", err)
		}
		out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, toFieldError(fe))
		}
		return model.Registration{}, out
	}

	members := []string(req.Members)
	if members == nil {
		members = []string{}
	}
	return model.Registration{
		Team:        *req.Team,
		Institution: *req.Institution,
		Email:       *req.Email,
		Members:     members,
	}, nil
}

func toFieldError(fe validator.FieldError) FieldError {
	f := FieldError{Loc: []string{"body", fe.Field()}}
	switch fe.Tag() {
	case "required":
		f.Msg, f.Type = "Field required", TypeMissing
	case "min":
		f.Msg, f.Type = fmt.Sprintf("String should have at least %s characters", fe.Param()), TypeStringTooShort
	case "max":
		f.Msg, f.Type = fmt.Sprintf("String should have at most %s characters", fe.Param()), TypeStringTooLong
	case "email":
		f.Msg, f.Type = "value is not a valid email address", TypeValueError
	default:
		f.Msg, f.Type = fe.Error(), fe.Tag()
	}
	return f
}
