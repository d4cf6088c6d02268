package gclplugin_test

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/golangci/plugin-module-register/register"

	"github.com/panbanda/vigil/pkg/goanalysis"

	. "github.com/panbanda/vigil/gclplugin"
)

const allSettings = `{
	"config": "vigil.toml",
	"rules": ["nil-dereference", "nesting-depth"]
}`

func TestSettings(t *testing.T) {
	t.Parallel()

	testCases := [...]struct {
		name     string
		settings string
		want     int
	}{
		{"all", allSettings, reflect.TypeFor[Settings]().NumField()},
		{"none", `{}`, 0},
		{"empty rules", `{"rules": []}`, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dec := json.NewDecoder(strings.NewReader(tc.settings))
			dec.DisallowUnknownFields()

			var s Settings
			if err := dec.Decode(&s); err != nil {
				t.Fatalf("Can't decode settings: %v", err)
			}

			if got := s.Options(); len(got) != tc.want {
				t.Errorf("Got %d options: %s, want %d", len(got), goanalysis.Options(got).LogValue(), tc.want)
			}
		})
	}
}

func TestPlugin(t *testing.T) {
	t.Parallel()

	p, err := New(map[string]any{"rules": []any{"self-assignment"}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if got := p.GetLoadMode(); got != register.LoadModeTypesInfo {
		t.Errorf("GetLoadMode() = %q, want %q", got, register.LoadModeTypesInfo)
	}

	as, err := p.BuildAnalyzers()
	if err != nil {
		t.Fatalf("BuildAnalyzers() error: %v", err)
	}
	if len(as) != 1 || as[0].Name != "vigil" {
		t.Errorf("BuildAnalyzers() = %v, want the vigil analyzer", as)
	}
}
