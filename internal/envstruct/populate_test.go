package envstruct_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/coachreports/internal/envstruct"
)

type testConfig struct {
	Addr        string        `env:"TEST_ADDR" envDefault:"localhost:0"`
	SMTPPort    int           `env:"TEST_SMTP_PORT" envDefault:"25"`
	MetricsOn   bool          `env:"TEST_METRICS" envDefault:"true"`
	Timeout     time.Duration `env:"TEST_TIMEOUT" envDefault:"2s"`
	Untagged    string
	untaggedInt int
}

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestPopulate_Defaults(t *testing.T) {
	var got testConfig
	if err := envstruct.Populate(&got, lookupFrom(nil)); err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	want := testConfig{
		Addr:      "localhost:0",
		SMTPPort:  25,
		MetricsOn: true,
		Timeout:   2 * time.Second,
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(testConfig{})); diff != "" {
		t.Errorf("Populate() mismatch (-want +got):\n%s", diff)
	}
}

func TestPopulate_FromEnvironment(t *testing.T) {
	var got testConfig
	err := envstruct.Populate(&got, lookupFrom(map[string]string{
		"TEST_ADDR":      "0.0.0.0:8080",
		"TEST_SMTP_PORT": "587",
		"TEST_METRICS":   "false",
		"TEST_TIMEOUT":   "150ms",
	}))
	if err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	want := testConfig{
		Addr:      "0.0.0.0:8080",
		SMTPPort:  587,
		MetricsOn: false,
		Timeout:   150 * time.Millisecond,
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(testConfig{})); diff != "" {
		t.Errorf("Populate() mismatch (-want +got):\n%s", diff)
	}
}

func TestPopulate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		v       any
		env     map[string]string
		wantErr error
	}{
		{
			name:    "nil",
			v:       nil,
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "not pointer",
			v:       testConfig{},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "pointer to non-struct",
			v:       new(string),
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "missing without default",
			v: &struct {
				Required string `env:"TEST_REQUIRED"`
			}{},
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name:    "unparsable int",
			v:       &testConfig{},
			env:     map[string]string{"TEST_SMTP_PORT": "twenty-five"},
			wantErr: envstruct.ErrParse,
		},
		{
			name: "unsupported kind",
			v: &struct {
				Ratio float64 `env:"TEST_RATIO" envDefault:"0.5"`
			}{},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "unexported tagged field",
			v: &struct {
				hidden string `env:"TEST_HIDDEN" envDefault:"x"`
			}{},
			wantErr: envstruct.ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := envstruct.Populate(tt.v, lookupFrom(tt.env))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Populate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPopulate_CollectsAllProblems(t *testing.T) {
	v := &struct {
		A string `env:"TEST_A"`
		B int    `env:"TEST_B"`
	}{}
	err := envstruct.Populate(v, lookupFrom(map[string]string{"TEST_B": "x"}))
	if !errors.Is(err, envstruct.ErrEnvNotSet) || !errors.Is(err, envstruct.ErrParse) {
		t.Errorf("expected both problems to be reported, got %v", err)
	}
}
