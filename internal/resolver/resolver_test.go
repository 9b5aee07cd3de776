package resolver

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		req        Request
		env        map[string]string
		opts       []Option
		wantValue  any
		wantSource Source
		wantErr    error
	}{
		{
			name: "EnvironmentWinsOverDefault",
			req: Request{
				Key:     "PORT",
				Default: 3000,
				Type:    TypeInt,
			},
			env:        map[string]string{"PORT": "8080"},
			wantValue:  8080,
			wantSource: SourceEnvironment,
		},
		{
			name: "ConfigWinsOverEnvironmentAndDefault",
			req: Request{
				Key:     "DEBUG",
				Config:  map[string]any{"DEBUG": true},
				Default: false,
				Type:    TypeBool,
			},
			wantValue:  true,
			wantSource: SourceConfig,
		},
		{
			name: "DirectWinsOverEverything",
			req: Request{
				Key:     "NAME",
				Direct:  "override",
				Config:  map[string]any{"NAME": "ignored"},
				Default: "ignored",
			},
			env:        map[string]string{"NAME": "ignored"},
			wantValue:  "override",
			wantSource: SourceDirect,
		},
		{
			name: "DefaultWhenNothingElsePresent",
			req: Request{
				Key:     "WORKERS",
				Default: 4,
				Type:    TypeInt,
			},
			wantValue:  4,
			wantSource: SourceDefault,
		},
		{
			name: "ConversionFailureIsTerminal",
			req: Request{
				Key:     "TIMEOUT",
				Default: 30,
				Type:    TypeInt,
			},
			env:     map[string]string{"TIMEOUT": "not-a-number"},
			wantErr: ErrConversion,
		},
		{
			name: "MissingRequiredValue",
			req: Request{
				Key:  "MISSING",
				Type: TypeString,
			},
			wantErr: ErrMissingValue,
		},
		{
			name: "EmptyEnvValueCountsAsAbsent",
			req: Request{
				Key:     "HOST",
				Default: "localhost",
			},
			env:        map[string]string{"HOST": "   "},
			wantValue:  "localhost",
			wantSource: SourceDefault,
		},
		{
			name:    "EmptyKeyRejected",
			req:     Request{Key: "  "},
			wantErr: ErrEmptyKey,
		},
		{
			name:    "UnknownTypeRejected",
			req:     Request{Key: "PORT", Type: ValueType("duration")},
			wantErr: ErrInvalidType,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := append([]Option{WithEnvLookup(fakeEnv(tc.env))}, tc.opts...)
			res := New(opts...)

			got, err := res.Resolve(tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				return
			}

			if !reflect.DeepEqual(got.Value, tc.wantValue) {
				t.Fatalf("expected value %v (%T), got %v (%T)", tc.wantValue, tc.wantValue, got.Value, got.Value)
			}
			if got.Source != tc.wantSource {
				t.Fatalf("expected source %s, got %s", tc.wantSource, got.Source)
			}
		})
	}
}

func TestResolveConversionErrorNamesKeyAndRaw(t *testing.T) {
	t.Parallel()

	res := New(WithEnvLookup(fakeEnv(map[string]string{"TIMEOUT": "not-a-number"})))

	_, err := res.Resolve(Request{Key: "TIMEOUT", Default: 30, Type: TypeInt})

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if convErr.Key != "TIMEOUT" || convErr.Raw != "not-a-number" || convErr.Type != TypeInt {
		t.Fatalf("unexpected conversion error fields: %+v", convErr)
	}
	if msg := convErr.Error(); !strings.Contains(msg, "TIMEOUT") || !strings.Contains(msg, "not-a-number") {
		t.Fatalf("error message should name key and raw value, got %q", msg)
	}
}

func TestResolveMissingValueNamesKeyAndType(t *testing.T) {
	t.Parallel()

	res := New(WithEnvLookup(fakeEnv(nil)))

	_, err := res.Resolve(Request{Key: "ABSENT", Type: TypeBool})
	if !errors.Is(err, ErrMissingValue) {
		t.Fatalf("expected ErrMissingValue, got %v", err)
	}
	if msg := err.Error(); !strings.Contains(msg, "ABSENT") || !strings.Contains(msg, string(TypeBool)) {
		t.Fatalf("error message should name key and type, got %q", msg)
	}
}

func TestResolveEnvNamingConvention(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		key     string
		envName string
	}{
		{
			name:    "UppercaseWithPrefix",
			opts:    []Option{WithEnvPrefix("MYAPP_")},
			key:     "timeout",
			envName: "MYAPP_TIMEOUT",
		},
		{
			name:    "PrefixWithoutUppercasing",
			opts:    []Option{WithEnvPrefix("myapp_"), WithUppercaseKeys(false)},
			key:     "timeout",
			envName: "myapp_timeout",
		},
		{
			name:    "NoPrefix",
			key:     "HOST",
			envName: "HOST",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := map[string]string{tc.envName: "from-env"}
			res := New(append(tc.opts, WithEnvLookup(fakeEnv(env)))...)

			if got := res.EnvKey(tc.key); got != tc.envName {
				t.Fatalf("expected env key %q, got %q", tc.envName, got)
			}

			got, err := res.Resolve(Request{Key: tc.key})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Value != "from-env" || got.Source != SourceEnvironment {
				t.Fatalf("expected environment value, got %v from %s", got.Value, got.Source)
			}
			if got.EnvKey != tc.envName {
				t.Fatalf("expected EnvKey %q, got %q", tc.envName, got.EnvKey)
			}
		})
	}
}

func TestResolveReadsProcessEnvironment(t *testing.T) {
	t.Setenv("PRIOCFG_TEST_RATE", "3.14")

	res := New(WithEnvPrefix("PRIOCFG_TEST_"))
	got, err := res.Resolve(Request{Key: "rate", Default: 1.0, Type: TypeFloat})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != 3.14 || got.Source != SourceEnvironment {
		t.Fatalf("expected 3.14 from environment, got %v from %s", got.Value, got.Source)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	t.Parallel()

	res := New(WithEnvLookup(fakeEnv(map[string]string{"PORT": "8080"})))
	req := Request{Key: "PORT", Default: 3000, Type: TypeInt}

	first, err := res.Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := res.Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestResolveDoesNotMutateMapping(t *testing.T) {
	t.Parallel()

	mapping := map[string]any{"HOST": "localhost"}
	res := New(WithEnvLookup(fakeEnv(nil)))

	if _, err := res.Resolve(Request{Key: "HOST", Config: mapping, Direct: "direct"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := res.Resolve(Request{Key: "OTHER", Config: mapping, Default: "d"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mapping) != 1 || mapping["HOST"] != "localhost" {
		t.Fatalf("mapping was mutated: %v", mapping)
	}
}

func TestResolveMasksSensitiveDisplayOnly(t *testing.T) {
	t.Parallel()

	journal := NewJournal()
	res := New(
		WithEnvLookup(fakeEnv(nil)),
		WithRecorder(journal),
	)

	got, err := res.Resolve(Request{Key: "SECRET", Direct: "abc123", Sensitive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Value != "abc123" {
		t.Fatalf("expected unmasked value for caller, got %v", got.Value)
	}
	if strings.Contains(got.Display, "abc123") {
		t.Fatalf("display contains the literal value: %q", got.Display)
	}

	records := journal.Records()
	if len(records) != 1 {
		t.Fatalf("expected one journal record, got %d", len(records))
	}
	if strings.Contains(records[0].Display, "abc123") {
		t.Fatalf("journal record contains the literal value: %q", records[0].Display)
	}
}

func TestResolveAutoDetectsSensitiveKeys(t *testing.T) {
	t.Parallel()

	res := New(WithEnvLookup(fakeEnv(nil)))

	got, err := res.Resolve(Request{Key: "api_token", Direct: "sk-1234567890"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got.Display, "sk-1234567890") {
		t.Fatalf("expected auto-masked display, got %q", got.Display)
	}

	plain := New(WithEnvLookup(fakeEnv(nil)), WithSensitiveKeywords(nil))
	got, err = plain.Resolve(Request{Key: "api_token", Direct: "sk-1234567890"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Display != "sk-1234567890" {
		t.Fatalf("expected auto-detection disabled, got %q", got.Display)
	}
}

type panickyRecorder struct{}

func (panickyRecorder) Record(Record) {
	panic("recorder failure")
}

func TestResolveSwallowsObservabilityFailures(t *testing.T) {
	t.Parallel()

	res := New(
		WithEnvLookup(fakeEnv(nil)),
		WithRecorder(panickyRecorder{}),
		WithLogger(zaptest.NewLogger(t)),
	)

	got, err := res.Resolve(Request{Key: "HOST", Direct: "localhost"})
	if err != nil {
		t.Fatalf("expected resolution to survive recorder panic, got %v", err)
	}
	if got.Value != "localhost" || got.Source != SourceDirect {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestResolveLogsOneRecordPerLookup(t *testing.T) {
	t.Parallel()

	journal := NewJournal()
	res := New(
		WithEnvLookup(fakeEnv(map[string]string{"PORT": "8080"})),
		WithLogger(zaptest.NewLogger(t)),
		WithRecorder(journal),
	)

	if _, err := res.Resolve(Request{Key: "PORT", Type: TypeInt, Default: 3000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := res.Resolve(Request{Key: "HOST", Default: "localhost"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := journal.Records()
	if len(records) != 2 {
		t.Fatalf("expected two journal records, got %d", len(records))
	}
	if records[0].Key != "PORT" || records[0].Source != SourceEnvironment {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Key != "HOST" || records[1].Source != SourceDefault {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}

func TestValueReadsBaseMappingOnly(t *testing.T) {
	t.Parallel()

	res := New(WithValues(map[string]any{"HOST": "localhost"}))

	if v, ok := res.Value("HOST"); !ok || v != "localhost" {
		t.Fatalf("expected base mapping entry, got %v (%v)", v, ok)
	}
	if _, ok := res.Value("MISSING"); ok {
		t.Fatalf("expected absence for unknown key")
	}
}

func TestWithValuesCopiesMapping(t *testing.T) {
	t.Parallel()

	original := map[string]any{"HOST": "localhost"}
	res := New(WithValues(original), WithEnvLookup(fakeEnv(nil)))

	original["HOST"] = "mutated"

	got, err := res.Resolve(Request{Key: "HOST"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != "localhost" {
		t.Fatalf("expected resolver to hold a copy, got %v", got.Value)
	}
}

func TestParseValueType(t *testing.T) {
	t.Parallel()

	if got, err := ParseValueType(""); err != nil || got != TypeString {
		t.Fatalf("expected empty string to select TypeString, got %v, %v", got, err)
	}
	if got, err := ParseValueType("bool"); err != nil || got != TypeBool {
		t.Fatalf("expected TypeBool, got %v, %v", got, err)
	}
	if _, err := ParseValueType("duration"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}
