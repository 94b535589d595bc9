// Package schema validates raw request payloads against the Register, Login
// and Feedback shapes. It performs no I/O and never echoes submitted values.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/domain/feedback"
	"github.com/go-playground/validator/v10"
)

type Shape uint8

const (
	ShapeRegister Shape = iota + 1
	ShapeLogin
	ShapeFeedback
)

func (s Shape) String() string {
	switch s {
	case ShapeRegister:
		return "register"
	case ShapeLogin:
		return "login"
	case ShapeFeedback:
		return "feedback"
	}
	return "unknown"
}

// Raw is an undecoded payload: a JSON object or flattened form values.
type Raw map[string]any

type Register struct {
	Name     string `json:"name" validate:"required,min=1,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type Feedback struct {
	Sentiment string `json:"sentiment" validate:"required,oneof=positive negative neutral"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
}

func (f Feedback) CreateRequest() feedback.CreateRequest {
	return feedback.CreateRequest{Sentiment: feedback.Sentiment(f.Sentiment), Rating: f.Rating}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})
	return v
}

// Validate dispatches on shape and returns the typed payload
// (Register, Login or Feedback) or a validation *apperr.Error.
func Validate(shape Shape, raw Raw) (any, error) {
	switch shape {
	case ShapeRegister:
		return ValidateRegister(raw)
	case ShapeLogin:
		return ValidateLogin(raw)
	case ShapeFeedback:
		return ValidateFeedback(raw)
	}
	return nil, apperr.Internal(fmt.Errorf("unknown payload shape %d", shape))
}

func ValidateRegister(raw Raw) (Register, error) {
	var fields []apperr.FieldError
	out := Register{
		Name:     stringField(raw, "name", &fields),
		Email:    strings.ToLower(stringField(raw, "email", &fields)),
		Password: passwordField(raw, &fields),
	}
	return out, check(out, fields)
}

func ValidateLogin(raw Raw) (Login, error) {
	var fields []apperr.FieldError
	out := Login{
		Email:    strings.ToLower(stringField(raw, "email", &fields)),
		Password: passwordField(raw, &fields),
	}
	return out, check(out, fields)
}

func ValidateFeedback(raw Raw) (Feedback, error) {
	var fields []apperr.FieldError

	// "feedback" is the field name older forms post the sentiment under.
	key := "sentiment"
	if _, ok := raw[key]; !ok {
		if _, legacy := raw["feedback"]; legacy {
			key = "feedback"
		}
	}

	out := Feedback{Sentiment: rawString(raw, key, "sentiment", &fields)}

	rating, fe := coerceRating(raw)
	if fe != nil {
		fields = append(fields, *fe)
	} else {
		out.Rating = rating
	}

	return out, check(out, fields)
}

// check runs struct validation and merges its failures with the decode
// failures already collected. A field that failed to decode is not reported twice.
func check(v any, decodeFields []apperr.FieldError) error {
	fields := decodeFields

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f.Field] = struct{}{}
	}

	if err := validate.Struct(v); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperr.Internal(err)
		}
		for _, fe := range verrs {
			if _, dup := seen[fe.Field()]; dup {
				continue
			}
			seen[fe.Field()] = struct{}{}
			fields = append(fields, apperr.FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param(), fe.Kind()),
			})
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation(fields)
}

func stringField(raw Raw, key string, fields *[]apperr.FieldError) string {
	return strings.TrimSpace(rawString(raw, key, key, fields))
}

// passwords are never trimmed.
func passwordField(raw Raw, fields *[]apperr.FieldError) string {
	return rawString(raw, "password", "password", fields)
}

func rawString(raw Raw, key, field string, fields *[]apperr.FieldError) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		*fields = append(*fields, apperr.FieldError{Field: field, Rule: "type", Message: "must be a string"})
		return ""
	}
	return s
}

// coerceRating accepts JSON numbers, numeric-looking strings and booleans
// (true is 1, false is 0), and rejects anything that is not an integral value.
func coerceRating(raw Raw) (int, *apperr.FieldError) {
	v, ok := raw["rating"]
	if !ok || v == nil {
		return 0, &apperr.FieldError{Field: "rating", Rule: "required", Message: validationMessage("required", "", reflect.Int)}
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case bool:
		if n {
			f = 1
		}
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, notAnInteger()
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, notAnInteger()
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, notAnInteger()
		}
		f = parsed
	default:
		return 0, notAnInteger()
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, notAnInteger()
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, &apperr.FieldError{Field: "rating", Rule: "max", Param: strconv.Itoa(feedback.MaxRating), Message: validationMessage("max", strconv.Itoa(feedback.MaxRating), reflect.Int)}
	}
	return int(f), nil
}

func notAnInteger() *apperr.FieldError {
	return &apperr.FieldError{Field: "rating", Rule: "int", Message: "must be an integer"}
}

func validationMessage(rule, param string, kind reflect.Kind) string {
	unit := ""
	if kind == reflect.String {
		unit = " characters"
	}

	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + unit
	case "max":
		return "must be at most " + param + unit
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
