package usecase

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kirillkom/directory-console/internal/core/domain"
)

func TestParseVariables(t *testing.T) {
	vars, err := ParseVariables(`{"ville": "Paris", "annee": 2026, "actif": true}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]string{"ville": "Paris", "annee": "2026", "actif": "true"}
	if !reflect.DeepEqual(vars, want) {
		t.Fatalf("got %v, want %v", vars, want)
	}

	for _, text := range []string{"not-json", "", "null", `["Paris"]`, `{"ville": {"nom": "Paris"}}`, `{"ville": null}`} {
		if _, err := ParseVariables(text); !errors.Is(err, domain.ErrInvalidVariables) {
			t.Fatalf("%q: expected ErrInvalidVariables, got %v", text, err)
		}
	}
}

func TestGenerateFormChecksTemplateFirst(t *testing.T) {
	form := GenerateForm{VariablesText: "not-json"}
	if _, err := form.Request(); !errors.Is(err, domain.ErrNoTemplateSelected) {
		t.Fatalf("expected ErrNoTemplateSelected, got %v", err)
	}

	form.Reset()
	if form.VariablesText != DefaultVariablesText || form.TemplateID != 0 || form.Result != nil {
		t.Fatalf("unexpected reset form %+v", form)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("Plombiers à {ville} ({code_postal}), {{littéral}} et encore {ville}")
	want := []string{"ville", "code_postal"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if skeleton := VariablesSkeleton("{ville} {code_postal}"); skeleton != `{"ville": "", "code_postal": ""}` {
		t.Fatalf("unexpected skeleton %s", skeleton)
	}
	if skeleton := VariablesSkeleton("sans variable"); skeleton != "{}" {
		t.Fatalf("unexpected skeleton %s", skeleton)
	}
}

func TestMissingVariables(t *testing.T) {
	missing := MissingVariables("{ville} {code_postal}", map[string]string{"ville": "Paris"})
	if !reflect.DeepEqual(missing, []string{"code_postal"}) {
		t.Fatalf("unexpected missing %v", missing)
	}
}
