// Package match ranks known names by similarity to an unknown one. Mapping
// validation uses it to suggest the function or rule kind a typo most
// likely meant.
//
// Key functions:
//   - NormalizeIdent: folds case and separators so userName and user_name
//     compare equal
//   - Levenshtein: edit distance between two strings
//   - Rank and Suggest: ordered candidates for a misspelt name
package match
