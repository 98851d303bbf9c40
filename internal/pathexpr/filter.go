package pathexpr

import (
	"regexp"
	"strings"
)

// Filter applies include/exclude glob lists to paths.
//
// Glob syntax differs from match patterns: "*" matches any run of characters,
// dots included, every other character is literal and the whole path must
// match. "user.*" therefore also excludes "user.address.zip".
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// NewFilter compiles include and exclude globs.
func NewFilter(include, exclude []string) Filter {
	return Filter{
		include: compileGlobs(include),
		exclude: compileGlobs(exclude),
	}
}

// Empty reports whether the filter has neither inclusions nor exclusions.
func (f Filter) Empty() bool {
	return len(f.include) == 0 && len(f.exclude) == 0
}

// Excluded reports whether any of paths matches an exclusion glob.
func (f Filter) Excluded(paths ...string) bool {
	return anyMatch(f.exclude, paths)
}

// Included reports whether any of paths matches an inclusion glob. With no
// inclusions every path is included.
func (f Filter) Included(paths ...string) bool {
	if len(f.include) == 0 {
		return true
	}

	return anyMatch(f.include, paths)
}

// Allows applies exclusions first, then inclusions.
func (f Filter) Allows(paths ...string) bool {
	return !f.Excluded(paths...) && f.Included(paths...)
}

// GlobMatch reports whether s matches the glob pattern as a whole.
func GlobMatch(pattern, s string) bool {
	return globRegexp(pattern).MatchString(s)
}

func anyMatch(res []*regexp.Regexp, paths []string) bool {
	for _, re := range res {
		for _, p := range paths {
			if re.MatchString(p) {
				return true
			}
		}
	}

	return false
}

func compileGlobs(globs []string) []*regexp.Regexp {
	if len(globs) == 0 {
		return nil
	}

	out := make([]*regexp.Regexp, 0, len(globs))
	for _, g := range globs {
		out = append(out, globRegexp(g))
	}

	return out
}

func globRegexp(glob string) *regexp.Regexp {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}

	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}
