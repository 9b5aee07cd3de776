package resolver

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Resolver executes the fallback chain. It is immutable after construction
// and safe for concurrent use: each Resolve call is a pure function of its
// inputs plus the read-only environment table.
type Resolver struct {
	values    map[string]any
	envPrefix string
	upperKeys bool
	keywords  []string
	mask      MaskFunc
	lookupEnv func(string) (string, bool)
	logger    *zap.Logger
	recorder  Recorder
}

// Option configures Resolver behaviour.
type Option func(*Resolver)

// WithValues sets the base configuration mapping consulted when a request
// does not carry its own. The mapping is copied.
func WithValues(values map[string]any) Option {
	return func(r *Resolver) {
		copied := make(map[string]any, len(values))
		for k, v := range values {
			copied[k] = v
		}
		r.values = copied
	}
}

// WithEnvPrefix sets the namespace prefix for environment variable names.
func WithEnvPrefix(prefix string) Option {
	return func(r *Resolver) {
		r.envPrefix = prefix
	}
}

// WithUppercaseKeys controls whether keys are uppercased before the prefix is
// applied. Enabled by default.
func WithUppercaseKeys(enabled bool) Option {
	return func(r *Resolver) {
		r.upperKeys = enabled
	}
}

// WithSensitiveKeywords replaces the keyword list used to auto-detect
// sensitive keys. Pass nil to disable auto-detection.
func WithSensitiveKeywords(keywords []string) Option {
	return func(r *Resolver) {
		r.keywords = keywords
	}
}

// WithMask overrides the masking applied to sensitive display values.
func WithMask(mask MaskFunc) Option {
	return func(r *Resolver) {
		if mask != nil {
			r.mask = mask
		}
	}
}

// WithLogger sets the structured logging sink. Resolution never fails because
// of the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithRecorder attaches a journal that receives one record per resolution.
func WithRecorder(recorder Recorder) Option {
	return func(r *Resolver) {
		r.recorder = recorder
	}
}

// WithEnvLookup overrides the environment table, primarily for tests.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(r *Resolver) {
		if lookup != nil {
			r.lookupEnv = lookup
		}
	}
}

// New constructs a Resolver with uppercased env keys, the default sensitive
// keyword list, and partial masking.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		upperKeys: true,
		keywords:  DefaultSensitiveKeywords(),
		mask:      PartialMask,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// provider is one step of the fallback chain: it either yields a value or
// reports absence, tagged with the source it represents.
type provider struct {
	source Source
	lookup func() (any, bool, error)
}

// Resolve walks the sources in order (direct, config, environment, default)
// and returns the first present value. A coercion failure on an environment
// value is terminal; it never falls through to the default.
func (r *Resolver) Resolve(req Request) (Result, error) {
	if strings.TrimSpace(req.Key) == "" {
		return Result{}, ErrEmptyKey
	}
	target := req.Type
	if target == "" {
		target = TypeString
	}
	if !target.valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}

	mapping := req.Config
	if mapping == nil {
		mapping = r.values
	}
	envKey := r.EnvKey(req.Key)

	chain := []provider{
		{SourceDirect, func() (any, bool, error) {
			return req.Direct, req.Direct != nil, nil
		}},
		{SourceConfig, func() (any, bool, error) {
			v, ok := mapping[req.Key]
			return v, ok, nil
		}},
		{SourceEnvironment, func() (any, bool, error) {
			raw, ok := r.lookupEnv(envKey)
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				return nil, false, nil
			}
			v, err := coerce(raw, target)
			if err != nil {
				return nil, false, &ConversionError{Key: req.Key, Raw: raw, Type: target}
			}
			return v, true, nil
		}},
		{SourceDefault, func() (any, bool, error) {
			return req.Default, req.Default != nil, nil
		}},
	}

	for _, p := range chain {
		value, ok, err := p.lookup()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		result := Result{
			Key:     req.Key,
			Value:   value,
			Source:  p.source,
			EnvKey:  envKey,
			Display: r.display(req, value),
		}
		r.observe(result, target)
		return result, nil
	}

	return Result{}, fmt.Errorf("%w: key %q (type %s)", ErrMissingValue, req.Key, target)
}

// Value reads the base mapping directly without running the fallback chain.
func (r *Resolver) Value(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// EnvKey returns the environment variable name consulted for a key, applying
// the configured case transformation and prefix.
func (r *Resolver) EnvKey(key string) string {
	if r.upperKeys {
		key = strings.ToUpper(key)
	}
	return r.envPrefix + key
}

func (r *Resolver) display(req Request, value any) string {
	text := formatValue(value)
	if req.Sensitive || r.isSensitiveKey(req.Key) {
		return r.mask(text)
	}
	return text
}

func (r *Resolver) isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, keyword := range r.keywords {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	return false
}

// observe emits the structured log record and the journal entry. Both are
// best-effort: a panic here is swallowed so it cannot alter the result.
func (r *Resolver) observe(result Result, target ValueType) {
	defer func() {
		_ = recover()
	}()

	if r.recorder != nil {
		r.recorder.Record(Record{
			Key:     result.Key,
			Source:  result.Source,
			Display: result.Display,
			Type:    target,
		})
	}

	if r.logger != nil {
		fields := []zap.Field{
			zap.String("key", result.Key),
			zap.String("source", string(result.Source)),
			zap.String("value", result.Display),
			zap.String("type", string(target)),
		}
		if result.Source == SourceEnvironment {
			fields = append(fields, zap.String("env_key", result.EnvKey))
		}
		r.logger.Info("configuration value resolved", fields...)
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
