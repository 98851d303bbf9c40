// Package diagnostic collects the errors, warnings and notes produced while
// checking a mapping file, each tied to the rule and path it concerns.
package diagnostic
