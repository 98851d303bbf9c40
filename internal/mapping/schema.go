package mapping

import (
	"fmt"
	"reflect"
	"slices"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// MappingFile is the root of a rule file.
type MappingFile struct {
	// Version is the schema version. Defaults to "1".
	Version string `yaml:"version"`
	// Name identifies the mapping in logs, metrics and errors.
	Name string `yaml:"name"`
	// Description is free text.
	Description string `yaml:"description,omitempty"`
	// Input is the input format; empty means detect from content.
	Input string `yaml:"input,omitempty"`
	// Output is the output format; empty means json.
	Output string `yaml:"output,omitempty"`
	// Rules are applied in order.
	Rules []RuleDef `yaml:"rules"`
}

// Rule kinds, named after the key that introduces them in a rule entry.
const (
	KindMap     = "map"
	KindCombine = "combine"
	KindBulk    = "bulk"
	KindFlatten = "flatten"
	KindNest    = "nest"
	KindForEach = "forEach"
	KindCollect = "collect"
	KindBranch  = "branch"
	KindLog     = "log"
)

// Kinds lists the rule kinds in detection order.
var Kinds = []string{KindMap, KindCombine, KindBulk, KindFlatten, KindNest, KindForEach, KindCollect, KindBranch, KindLog}

// RuleDef is one rule entry. Exactly one of the kind fields is set once
// the entry was recognized.
type RuleDef struct {
	// Kind is the detected kind, or empty when no kind key was present.
	Kind string
	// Line is the line of the entry in its file; zero for nested rules.
	Line int

	Map     *MapDef
	Combine *CombineDef
	Bulk    *BulkDef
	Flatten *FlattenDef
	Nest    *NestDef
	ForEach *ForEachDef
	Collect *CollectDef
	Branch  *BranchDef
	Log     *LogDef

	// Conflicts lists further kind keys found next to Kind.
	Conflicts []string
	// Unused lists keys the kind does not know, sorted.
	Unused []string
}

// MapDef copies one value.
type MapDef struct {
	Source    string        `mapstructure:"map"`
	Target    string        `mapstructure:"to"`
	Transform *TransformRef `mapstructure:"transform"`
	When      *ConditionDef `mapstructure:"when"`
	Default   any           `mapstructure:"default"`

	// HasDefault tells an explicit `default: null` from no default.
	HasDefault bool `mapstructure:"-"`
}

// CombineDef merges several values into one.
type CombineDef struct {
	Sources   []string      `mapstructure:"combine"`
	Target    string        `mapstructure:"to"`
	Transform *TransformRef `mapstructure:"transform"`
	Separator *string       `mapstructure:"separator"`
	When      *ConditionDef `mapstructure:"when"`
}

// BulkDef copies every match of a pattern.
type BulkDef struct {
	Pattern   string        `mapstructure:"bulk"`
	Target    string        `mapstructure:"to"`
	Include   []string      `mapstructure:"include"`
	Exclude   []string      `mapstructure:"exclude"`
	Flat      bool          `mapstructure:"flat"`
	Transform *TransformRef `mapstructure:"transform"`
}

// FlattenDef collapses a nested object into prefixed keys.
type FlattenDef struct {
	Source    string        `mapstructure:"flatten"`
	Target    string        `mapstructure:"to"`
	Prefix    string        `mapstructure:"prefix"`
	Include   []string      `mapstructure:"include"`
	Exclude   []string      `mapstructure:"exclude"`
	Transform *TransformRef `mapstructure:"transform"`
}

// NestDef folds pattern matches into a new structure.
type NestDef struct {
	Pattern   string        `mapstructure:"nest"`
	Target    string        `mapstructure:"to"`
	Mode      string        `mapstructure:"as"`
	Key       string        `mapstructure:"key"`
	Value     string        `mapstructure:"value"`
	SkipNulls bool          `mapstructure:"skipNulls"`
	Transform *TransformRef `mapstructure:"transform"`
}

// ForEachDef runs nested rules once per array element.
type ForEachDef struct {
	Collection string    `mapstructure:"forEach"`
	Item       string    `mapstructure:"as"`
	Index      string    `mapstructure:"index"`
	Into       string    `mapstructure:"into"`
	Rules      []RuleDef `mapstructure:"rules"`
}

// CollectDef builds an array from one object per element.
type CollectDef struct {
	Collection string    `mapstructure:"collect"`
	Item       string    `mapstructure:"as"`
	Index      string    `mapstructure:"index"`
	Target     string    `mapstructure:"to"`
	Rules      []RuleDef `mapstructure:"rules"`
}

// BranchDef runs the rules of the first case whose condition holds.
type BranchDef struct {
	Cases []CaseDef `mapstructure:"branch"`
}

// LogDef logs a message together with the values at Paths. Level defaults
// to info.
type LogDef struct {
	Message string        `mapstructure:"log"`
	Level   string        `mapstructure:"level"`
	Paths   []string      `mapstructure:"paths"`
	When    *ConditionDef `mapstructure:"when"`
}

// CaseDef is one branch case. A case without When, or with Otherwise set,
// always holds.
type CaseDef struct {
	When      *ConditionDef `mapstructure:"when"`
	Otherwise bool          `mapstructure:"otherwise"`
	Rules     []RuleDef     `mapstructure:"rules"`
}

// TransformRef names a registered function plus extra arguments. In YAML
// it is either a bare name or {func: name, args: [...]}.
type TransformRef struct {
	Func string `mapstructure:"func"`
	Args []any  `mapstructure:"args"`
}

// ConditionDef is a declarative condition. Every operator that is set must
// hold. A bare string is shorthand for {path: s, exists: true}.
type ConditionDef struct {
	Path      string
	Exists    *bool
	Equals    any
	NotEquals any
	In        []any
	Matches   string
	Gt        *float64
	Lt        *float64
	Func      string
	Args      []any

	All []ConditionDef
	Any []ConditionDef
	Not *ConditionDef

	HasEquals    bool
	HasNotEquals bool

	// Unknown lists keys that are not condition operators, sorted.
	Unknown []string
}

// ruleFields lists the keys each kind accepts.
var ruleFields = map[string][]string{
	KindMap:     {"map", "to", "transform", "when", "default"},
	KindCombine: {"combine", "to", "transform", "separator", "when"},
	KindBulk:    {"bulk", "to", "include", "exclude", "flat", "transform"},
	KindFlatten: {"flatten", "to", "prefix", "include", "exclude", "transform"},
	KindNest:    {"nest", "to", "as", "key", "value", "skipNulls", "transform"},
	KindForEach: {"forEach", "as", "index", "into", "rules"},
	KindCollect: {"collect", "as", "index", "to", "rules"},
	KindBranch:  {"branch"},
	KindLog:     {"log", "level", "paths", "when"},
}

var conditionFields = []string{
	"path", "exists", "equals", "notEquals", "in", "matches", "gt", "lt",
	"func", "args", "all", "any", "not",
}

// UnmarshalYAML decodes a rule entry, detecting its kind from its keys.
func (r *RuleDef) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: rule must be a mapping: %w", node.Line, err)
	}

	def, err := decodeRule(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	def.Line = node.Line
	*r = def

	return nil
}

func decodeRule(raw map[string]any) (RuleDef, error) {
	var def RuleDef

	var found []string
	for _, k := range Kinds {
		if _, ok := raw[k]; ok {
			found = append(found, k)
		}
	}

	if len(found) == 0 {
		def.Unused = sortedKeys(raw)
		return def, nil
	}

	def.Kind, def.Conflicts = found[0], found[1:]

	var result any

	switch def.Kind {
	case KindMap:
		def.Map = &MapDef{}
		result = def.Map
	case KindCombine:
		def.Combine = &CombineDef{}
		result = def.Combine
	case KindBulk:
		def.Bulk = &BulkDef{}
		result = def.Bulk
	case KindFlatten:
		def.Flatten = &FlattenDef{}
		result = def.Flatten
	case KindNest:
		def.Nest = &NestDef{}
		result = def.Nest
	case KindForEach:
		def.ForEach = &ForEachDef{}
		result = def.ForEach
	case KindCollect:
		def.Collect = &CollectDef{}
		result = def.Collect
	case KindBranch:
		def.Branch = &BranchDef{}
		result = def.Branch
	case KindLog:
		def.Log = &LogDef{}
		result = def.Log
	}

	var md mapstructure.Metadata

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook,
		Metadata:         &md,
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return def, err
	}

	if err := dec.Decode(raw); err != nil {
		return def, fmt.Errorf("%s rule: %w", def.Kind, err)
	}

	for _, k := range md.Unused {
		if !slices.Contains(def.Conflicts, k) {
			def.Unused = append(def.Unused, k)
		}
	}

	sort.Strings(def.Unused)

	if def.Map != nil {
		_, def.Map.HasDefault = raw["default"]
	}

	return def, nil
}

var (
	ruleDefType      = reflect.TypeFor[RuleDef]()
	transformRefType = reflect.TypeFor[TransformRef]()
	conditionDefType = reflect.TypeFor[ConditionDef]()
)

// decodeHook turns raw YAML values into the nested definition types that
// need more than field-by-field decoding.
func decodeHook(from, to reflect.Type, data any) (any, error) {
	switch to {
	case ruleDefType:
		raw, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("rule must be a mapping, got %T", data)
		}

		return decodeRule(raw)

	case transformRefType:
		if from.Kind() == reflect.String {
			return TransformRef{Func: data.(string)}, nil
		}

	case conditionDefType:
		return decodeCondition(data)
	}

	return data, nil
}

func decodeCondition(data any) (ConditionDef, error) {
	var c ConditionDef

	if s, ok := data.(string); ok {
		exists := true
		return ConditionDef{Path: s, Exists: &exists}, nil
	}

	raw, ok := data.(map[string]any)
	if !ok {
		return c, fmt.Errorf("condition must be a path or a mapping, got %T", data)
	}

	var err error

	for _, k := range sortedKeys(raw) {
		v := raw[k]

		switch k {
		case "path":
			c.Path, err = cast.ToStringE(v)
		case "exists":
			var b bool
			b, err = cast.ToBoolE(v)
			c.Exists = &b
		case "equals":
			c.Equals, c.HasEquals = v, true
		case "notEquals":
			c.NotEquals, c.HasNotEquals = v, true
		case "in":
			c.In, err = cast.ToSliceE(v)
		case "matches":
			c.Matches, err = cast.ToStringE(v)
		case "gt":
			c.Gt, err = floatPtr(v)
		case "lt":
			c.Lt, err = floatPtr(v)
		case "func":
			c.Func, err = cast.ToStringE(v)
		case "args":
			c.Args, err = cast.ToSliceE(v)
		case "all":
			c.All, err = decodeConditions(v)
		case "any":
			c.Any, err = decodeConditions(v)
		case "not":
			var not ConditionDef
			not, err = decodeCondition(v)
			c.Not = &not
		default:
			c.Unknown = append(c.Unknown, k)
		}

		if err != nil {
			return c, fmt.Errorf("condition %s: %w", k, err)
		}
	}

	return c, nil
}

func decodeConditions(v any) ([]ConditionDef, error) {
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, err
	}

	out := make([]ConditionDef, 0, len(items))

	for i, item := range items {
		c, err := decodeCondition(item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}

		out = append(out, c)
	}

	return out, nil
}

func floatPtr(v any) (*float64, error) {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, err
	}

	return &f, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
