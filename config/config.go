// Package config loads and validates NPAG run settings from a TOML file
// (with environment-variable overrides), via github.com/spf13/viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/npag-go/npag/sigma"
)

// Paths holds the on-disk locations Load reads from and the run writes to.
type Paths struct {
	Data  string // required
	Log   string // optional
	Prior string // optional: an existing Θ to seed from instead of Sobol
}

// Settings is the full set of options recognized at startup.
type Settings struct {
	Paths    Paths
	Cycles   int
	Seed     uint64
	Init     int
	TUI      bool
	Output   bool
	Cache    bool
	IDelta   float64
	TAD      float64
	LogLevel string
	Exclude  []string

	Random   map[string][2]float64
	Fixed    map[string]float64
	Constant map[string]float64

	Error ErrorSettings
}

// ErrorSettings mirrors §external-interfaces error.* options.
type ErrorSettings struct {
	Value float64
	Class sigma.Class
	Poly  sigma.Polynomial
}

// ValidationError aggregates every configuration violation found during
// Load, rather than failing on the first one.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %d problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func defaults(v *viper.Viper) {
	v.SetDefault("config.cycles", 100)
	v.SetDefault("config.init_points", 10000)
	v.SetDefault("config.seed", 347)
	v.SetDefault("config.cache", true)
	v.SetDefault("config.tui", false)
	v.SetDefault("config.output", true)
	v.SetDefault("config.idelta", 0.12)
	v.SetDefault("config.tad", 0.0)
	v.SetDefault("config.log_level", "info")
}

// Load reads settings from path (TOML), applying NPAG_-prefixed
// environment overrides, and validates the result. Every problem found —
// missing required paths, inverted or missing random-parameter bounds, an
// unknown error class, a negative error value — is collected into a
// single *ValidationError rather than stopping at the first.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("NPAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	s := &Settings{
		Paths: Paths{
			Data:  v.GetString("paths.data"),
			Log:   v.GetString("paths.log"),
			Prior: v.GetString("paths.prior"),
		},
		Cycles:   v.GetInt("config.cycles"),
		Seed:     uint64(v.GetInt64("config.seed")),
		Init:     v.GetInt("config.init_points"),
		TUI:      v.GetBool("config.tui"),
		Output:   v.GetBool("config.output"),
		Cache:    v.GetBool("config.cache"),
		IDelta:   v.GetFloat64("config.idelta"),
		TAD:      v.GetFloat64("config.tad"),
		LogLevel: v.GetString("config.log_level"),
		Exclude:  v.GetStringSlice("config.exclude"),
		Fixed:    v.GetStringMapFloat64("fixed"),
		Constant: v.GetStringMapFloat64("constant"),
	}

	rawRandom := v.GetStringMap("random")
	s.Random = make(map[string][2]float64, len(rawRandom))
	for name := range rawRandom {
		bounds := v.Get("random." + name)
		pair, ok := toFloatPair(bounds)
		if ok {
			s.Random[name] = pair
		}
	}

	s.Error = ErrorSettings{
		Value: v.GetFloat64("error.value"),
	}
	poly := v.GetFloat64Slice("error.poly")
	if len(poly) == 4 {
		s.Error.Poly = sigma.Polynomial{C0: poly[0], C1: poly[1], C2: poly[2], C3: poly[3]}
	}
	class, classErr := sigma.ParseClass(v.GetString("error.class"))
	if classErr == nil {
		s.Error.Class = class
	}

	if err := validate(s, rawRandom, classErr); err != nil {
		return nil, err
	}
	return s, nil
}

func validate(s *Settings, rawRandom map[string]interface{}, classErr error) error {
	var problems []string

	if s.Paths.Data == "" {
		problems = append(problems, "paths.data is required")
	}

	for name := range rawRandom {
		bounds, ok := s.Random[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("random.%s: could not parse [low, high] bounds", name))
			continue
		}
		if bounds[0] >= bounds[1] {
			problems = append(problems, fmt.Sprintf("random.%s: low (%v) must be less than high (%v)", name, bounds[0], bounds[1]))
		}
	}
	if len(rawRandom) == 0 {
		problems = append(problems, "random: at least one parameter is required")
	}

	if classErr != nil {
		problems = append(problems, classErr.Error())
	}
	if s.Error.Value < 0 {
		problems = append(problems, fmt.Sprintf("error.value must be non-negative, got %v", s.Error.Value))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func toFloatPair(v interface{}) ([2]float64, bool) {
	switch t := v.(type) {
	case []interface{}:
		if len(t) != 2 {
			return [2]float64{}, false
		}
		lo, ok1 := toFloat(t[0])
		hi, ok2 := toFloat(t[1])
		if !ok1 || !ok2 {
			return [2]float64{}, false
		}
		return [2]float64{lo, hi}, true
	case []float64:
		if len(t) != 2 {
			return [2]float64{}, false
		}
		return [2]float64{t[0], t[1]}, true
	default:
		return [2]float64{}, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
