package schema_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/schema"
)

func fieldRules(t *testing.T, err error) map[string]string {
	t.Helper()

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T (%v)", err, err)
	}
	if appErr.Kind != apperr.KindValidation {
		t.Fatalf("got kind %s, want %s", appErr.Kind, apperr.KindValidation)
	}

	out := make(map[string]string, len(appErr.Fields))
	for _, f := range appErr.Fields {
		if f.Message == "" {
			t.Fatalf("field %q has empty message", f.Field)
		}
		out[f.Field] = f.Rule
	}
	return out
}

func TestValidateFeedback_Rating(t *testing.T) {
	tests := []struct {
		name   string
		rating any
		want   int
		ok     bool
	}{
		{name: "int_number", rating: float64(3), want: 3, ok: true},
		{name: "lower_bound", rating: float64(1), want: 1, ok: true},
		{name: "upper_bound", rating: float64(5), want: 5, ok: true},
		{name: "numeric_string", rating: "4", want: 4, ok: true},
		{name: "padded_string", rating: " 2 ", want: 2, ok: true},
		{name: "integral_float_string", rating: "5.0", want: 5, ok: true},
		{name: "json_number", rating: json.Number("2"), want: 2, ok: true},
		{name: "zero_string", rating: "0"},
		{name: "six_string", rating: "6"},
		{name: "fraction_string", rating: "3.5"},
		{name: "fraction_number", rating: 3.5},
		{name: "letters", rating: "abc"},
		{name: "empty_string", rating: ""},
		{name: "negative", rating: float64(-1)},
		{name: "bool_true", rating: true, want: 1, ok: true},
		{name: "bool_false", rating: false},
		{name: "missing", rating: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			raw := schema.Raw{"sentiment": "positive"}
			if tt.rating != nil {
				raw["rating"] = tt.rating
			}

			got, err := schema.ValidateFeedback(raw)

			if tt.ok {
				if err != nil {
					t.Fatalf("ValidateFeedback(%v) error = %v, want nil", tt.rating, err)
				}
				if got.Rating != tt.want {
					t.Fatalf("got rating %d, want %d", got.Rating, tt.want)
				}
				return
			}

			rules := fieldRules(t, err)
			if _, ok := rules["rating"]; !ok {
				t.Fatalf("expected rating field error, got %v", rules)
			}
			if len(rules) != 1 {
				t.Fatalf("expected only the rating field to fail, got %v", rules)
			}
		})
	}
}

func TestValidateFeedback_Sentiment(t *testing.T) {
	for _, s := range []string{"positive", "negative", "neutral"} {
		got, err := schema.ValidateFeedback(schema.Raw{"sentiment": s, "rating": "3"})
		if err != nil {
			t.Fatalf("sentiment %q error = %v, want nil", s, err)
		}
		if string(got.Sentiment) != s {
			t.Fatalf("got sentiment %q, want %q", got.Sentiment, s)
		}
	}

	for _, s := range []any{"Positive", "NEUTRAL", "good", "", " positive", float64(1)} {
		_, err := schema.ValidateFeedback(schema.Raw{"sentiment": s, "rating": "3"})
		rules := fieldRules(t, err)
		if _, ok := rules["sentiment"]; !ok {
			t.Fatalf("sentiment %v: expected sentiment error, got %v", s, rules)
		}
	}
}

func TestValidateFeedback_LegacyFieldName(t *testing.T) {
	got, err := schema.ValidateFeedback(schema.Raw{"feedback": "neutral", "rating": "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Sentiment != "neutral" || got.Rating != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestValidateRegister(t *testing.T) {
	valid := schema.Raw{"name": "Ada", "email": "Ada@Example.com", "password": "password123"}

	got, err := schema.ValidateRegister(valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Fatalf("email not normalised: %q", got.Email)
	}

	_, err = schema.ValidateRegister(schema.Raw{
		"name":     strings.Repeat("x", 51),
		"email":    "not-an-email",
		"password": "short",
	})
	rules := fieldRules(t, err)

	want := map[string]string{"name": "max", "email": "email", "password": "min"}
	for field, rule := range want {
		if rules[field] != rule {
			t.Fatalf("field %q rule: got %q want %q (all=%v)", field, rules[field], rule, rules)
		}
	}

	_, err = schema.ValidateRegister(schema.Raw{})
	rules = fieldRules(t, err)
	for _, field := range []string{"name", "email", "password"} {
		if rules[field] != "required" {
			t.Fatalf("field %q: got rule %q want required", field, rules[field])
		}
	}
}

func TestValidateRegister_NeverEchoesPassword(t *testing.T) {
	secret := "tiny"
	_, err := schema.ValidateRegister(schema.Raw{"name": "A", "email": "a@b.co", "password": secret})
	if err == nil {
		t.Fatalf("expected error for short password")
	}

	appErr := apperr.From(err)
	if strings.Contains(appErr.Message, secret) {
		t.Fatalf("message echoes password: %q", appErr.Message)
	}
	for _, f := range appErr.Fields {
		if strings.Contains(f.Message, secret) {
			t.Fatalf("field message echoes password: %q", f.Message)
		}
	}
}

func TestValidateLogin(t *testing.T) {
	if _, err := schema.ValidateLogin(schema.Raw{"email": "s@example.com", "password": "password123"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := schema.ValidateLogin(schema.Raw{"email": 42, "password": "1234567"})
	rules := fieldRules(t, err)
	if rules["email"] != "type" {
		t.Fatalf("email: got %q want type", rules["email"])
	}
	if rules["password"] != "min" {
		t.Fatalf("password: got %q want min", rules["password"])
	}
}

func TestValidate_DispatchesOnShape(t *testing.T) {
	v, err := schema.Validate(schema.ShapeFeedback, schema.Raw{"sentiment": "negative", "rating": float64(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.(schema.Feedback); !ok {
		t.Fatalf("got %T, want schema.Feedback", v)
	}

	if _, err := schema.Validate(schema.Shape(99), schema.Raw{}); apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("unknown shape should be internal, got %v", err)
	}
}
