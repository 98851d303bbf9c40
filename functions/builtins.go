package functions

import (
	"cmp"
	"encoding/base64"
	"fmt"
	"html"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shape-mapper/codec"
	"shape-mapper/tree"
)

// Builtins returns a new registry holding the built-in function library.
func Builtins() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)

	return r
}

// RegisterBuiltins adds the built-in function library to r. It panics when
// a name is already taken.
func RegisterBuiltins(r *Registry) {
	for name, fn := range builtins {
		r.MustRegister(name, fn)
	}
}

var builtins = map[string]any{
	// strings
	"trim":           strings.TrimSpace,
	"upper":          strings.ToUpper,
	"lower":          strings.ToLower,
	"title":          title,
	"capitalize":     capitalize,
	"padLeft":        padLeft,
	"padRight":       padRight,
	"truncate":       truncate,
	"replace":        replace,
	"replaceRegex":   replaceRegex,
	"split":          split,
	"join":           join,
	"concat":         concat,
	"mask":           mask,
	"reverse":        reverse,
	"slugify":        slugify,
	"snakeCase":      snakeCase,
	"kebabCase":      kebabCase,
	"camelCase":      camelCase,
	"stripHtml":      stripHTML,
	"normalizeEmail": normalizeEmail,
	"formatPhone":    formatPhone,

	// numbers
	"abs":            math.Abs,
	"ceil":           math.Ceil,
	"floor":          math.Floor,
	"round":          math.Round,
	"roundTo":        roundTo,
	"add":            add,
	"multiply":       multiply,
	"negate":         negate,
	"toInt":          toInt,
	"toNumber":       toNumber,
	"formatNumber":   formatNumber,
	"formatCurrency": formatCurrency,
	"isNumber":       isNumber,

	// booleans
	"not":             not,
	"toBool":          toBool,
	"yesNo":           yesNo,
	"enabledDisabled": enabledDisabled,
	"activeInactive":  activeInactive,
	"boolToNumber":    boolToNumber,

	// null and empty handling
	"ifNull":         ifNull,
	"defaultIfEmpty": defaultIfEmpty,
	"isEmpty":        isEmpty,
	"isNull":         isNull,

	// dates
	"toIsoDate":  toIsoDate,
	"formatDate": formatDate,
	"addDays":    addDays,
	"addMonths":  addMonths,
	"addYears":   addYears,
	"year":       year,
	"month":      month,
	"day":        day,
	"toUnix":     toUnix,
	"fromUnix":   fromUnix,

	// collections
	"first":       first,
	"last":        last,
	"size":        size,
	"filterNulls": filterNulls,
	"sort":        sortValues,
	"reverseList": reverseList,

	// encoding
	"toBase64":   toBase64,
	"fromBase64": fromBase64,
	"urlEncode":  url.QueryEscape,
	"urlDecode":  url.QueryUnescape,
	"toJson":     toJSON,
	"parseJson":  parseJSON,

	// field combination
	"fullName": fullName,
	"email":    email,
}

// --- strings ---

func title(s string) string {
	return cases.Title(language.Und).String(s)
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}

	return string(unicode.ToUpper(r)) + s[n:]
}

func padLeft(s string, width int, pad string) string {
	if pad == "" {
		pad = " "
	}

	for len([]rune(s)) < width {
		s = pad + s
	}

	return s
}

func padRight(s string, width int, pad string) string {
	if pad == "" {
		pad = " "
	}

	for len([]rune(s)) < width {
		s += pad
	}

	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if n < 0 || len(runes) <= n {
		return s
	}

	return string(runes[:n])
}

func replace(s, old, repl string) string {
	return strings.ReplaceAll(s, old, repl)
}

func replaceRegex(s, pattern, repl string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}

	return re.ReplaceAllString(s, repl), nil
}

func split(s, sep string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}

	return parts
}

func join(items []string, sep string) string {
	return strings.Join(items, sep)
}

func concat(parts ...string) string {
	return strings.Join(parts, "")
}

// mask replaces all but the last keep characters with '*'.
func mask(s string, keep int) string {
	runes := []rune(s)
	if keep < 0 {
		keep = 0
	}

	for i := 0; i < len(runes)-keep; i++ {
		runes[i] = '*'
	}

	return string(runes)
}

func reverse(s string) string {
	runes := []rune(s)
	slices.Reverse(runes)

	return string(runes)
}

// words splits s on case changes and on anything that is not a letter or
// digit.
func words(s string) []string {
	var (
		out  []string
		cur  []rune
		prev rune
	)

	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}

	for _, r := range s {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && len(cur) > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}

		prev = r
	}

	flush()

	return out
}

func joinWords(s, sep string) string {
	ws := words(s)
	for i, w := range ws {
		ws[i] = strings.ToLower(w)
	}

	return strings.Join(ws, sep)
}

func slugify(s string) string   { return joinWords(s, "-") }
func snakeCase(s string) string { return joinWords(s, "_") }
func kebabCase(s string) string { return joinWords(s, "-") }

func camelCase(s string) string {
	ws := words(s)
	for i, w := range ws {
		w = strings.ToLower(w)
		if i > 0 {
			w = capitalize(w)
		}

		ws[i] = w
	}

	return strings.Join(ws, "")
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(htmlTag.ReplaceAllString(s, "")))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// formatPhone renders ten digit numbers as (xxx) xxx-xxxx and eleven digit
// numbers with a leading country code as +c (xxx) xxx-xxxx. Anything else
// is returned as its digits.
func formatPhone(s string) string {
	var digits strings.Builder

	for _, r := range s {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	d := digits.String()

	switch len(d) {
	case 10:
		return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
	case 11:
		return fmt.Sprintf("+%s (%s) %s-%s", d[:1], d[1:4], d[4:7], d[7:])
	default:
		return d
	}
}

// --- numbers ---

func roundTo(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

func add(a, b float64) float64      { return a + b }
func multiply(a, b float64) float64 { return a * b }
func negate(f float64) float64      { return -f }

func toInt(v any) (int64, error) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, err
		}

		return int64(f), nil
	}

	return cast.ToInt64E(v)
}

func toNumber(v any) (float64, error) {
	if s, ok := v.(string); ok {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}

	return cast.ToFloat64E(v)
}

func formatNumber(f float64, places int) string {
	return strconv.FormatFloat(f, 'f', places, 64)
}

// formatCurrency renders f with two decimals and comma thousands separators,
// prefixed with symbol.
func formatCurrency(f float64, symbol string) string {
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	s := strconv.FormatFloat(f, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var sb strings.Builder

	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}

		sb.WriteRune(r)
	}

	return sign + symbol + sb.String() + "." + frac
}

func isNumber(v any) bool {
	switch x := v.(type) {
	case float64, float32, int, int64, int32:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return err == nil
	default:
		return false
	}
}

// --- booleans ---

func not(b bool) bool { return !b }

func yesNo(b bool) string           { return pick(b, "Yes", "No") }
func enabledDisabled(b bool) string { return pick(b, "Enabled", "Disabled") }
func activeInactive(b bool) string  { return pick(b, "Active", "Inactive") }

func boolToNumber(b bool) int {
	if b {
		return 1
	}

	return 0
}

func pick(b bool, yes, no string) string {
	if b {
		return yes
	}

	return no
}

// --- null and empty handling ---

func ifNull(v, def any) any {
	if v == nil {
		return def
	}

	return v
}

func defaultIfEmpty(v, def any) any {
	if isEmpty(v) {
		return def
	}

	return v
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

func isNull(v any) bool {
	return v == nil
}

// --- dates ---

// javaLayout maps the common date pattern letters to Go reference layout
// tokens, so both "yyyy-MM-dd" and "2006-01-02" are accepted.
var javaLayout = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"SSS", "000",
)

func parseTime(v any) (time.Time, error) {
	if f, ok := v.(float64); ok {
		return time.Unix(int64(f), 0).UTC(), nil
	}

	return cast.ToTimeE(v)
}

func toIsoDate(v any) (string, error) {
	t, err := parseTime(v)
	if err != nil {
		return "", err
	}

	return t.Format(time.DateOnly), nil
}

func formatDate(v any, layout string) (string, error) {
	t, err := parseTime(v)
	if err != nil {
		return "", err
	}

	return t.Format(javaLayout.Replace(layout)), nil
}

func addDays(v any, n int) (time.Time, error)   { return shift(v, 0, 0, n) }
func addMonths(v any, n int) (time.Time, error) { return shift(v, 0, n, 0) }
func addYears(v any, n int) (time.Time, error)  { return shift(v, n, 0, 0) }

func shift(v any, years, months, days int) (time.Time, error) {
	t, err := parseTime(v)
	if err != nil {
		return time.Time{}, err
	}

	return t.AddDate(years, months, days), nil
}

func year(v any) (int, error) {
	t, err := parseTime(v)
	return t.Year(), err
}

func month(v any) (int, error) {
	t, err := parseTime(v)
	return int(t.Month()), err
}

func day(v any) (int, error) {
	t, err := parseTime(v)
	return t.Day(), err
}

func toUnix(v any) (int64, error) {
	t, err := parseTime(v)
	return t.Unix(), err
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// --- collections ---

func first(items []any) any {
	if len(items) == 0 {
		return nil
	}

	return items[0]
}

func last(items []any) any {
	if len(items) == 0 {
		return nil
	}

	return items[len(items)-1]
}

func size(v any) int {
	switch x := v.(type) {
	case []any:
		return len(x)
	case map[string]any:
		return len(x)
	case string:
		return len([]rune(x))
	case nil:
		return 0
	default:
		return 1
	}
}

func filterNulls(items []any) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}

	return out
}

// sortValues orders numbers numerically and everything else by its text.
// Numbers sort before other values.
func sortValues(items []any) []any {
	out := slices.Clone(items)

	slices.SortStableFunc(out, func(a, b any) int {
		fa, aNum := a.(float64)
		fb, bNum := b.(float64)

		switch {
		case aNum && bNum:
			return cmp.Compare(fa, fb)
		case aNum:
			return -1
		case bNum:
			return 1
		default:
			return strings.Compare(cast.ToString(a), cast.ToString(b))
		}
	})

	return out
}

func reverseList(items []any) []any {
	out := slices.Clone(items)
	slices.Reverse(out)

	return out
}

// --- encoding ---

func toBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func fromBase64(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	return string(b), err
}

func toJSON(n *tree.Node) (string, error) {
	b, err := codec.EncodeJSON(n, false)
	return string(b), err
}

func parseJSON(s string) (*tree.Node, error) {
	return codec.DecodeJSON([]byte(s))
}

// --- field combination ---

func fullName(parts ...string) string {
	var kept []string

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, " ")
}

func email(user, domain string) string {
	user, domain = strings.TrimSpace(user), strings.TrimSpace(domain)
	if user == "" || domain == "" {
		return ""
	}

	return strings.ToLower(user + "@" + domain)
}
