// Package sanitizer normalizes request data before validation and storage.
//
// All functions are idempotent and never fail: invalid input collapses to an
// empty string or is dropped from a slice.
//
//   - Codes (prison, category, incentive level, template reference): trimmed,
//     inner whitespace removed, upper case. " b-wi " becomes "B-WI".
//   - Identifiers (prisoner numbers): trimmed, upper case.
//   - Names: whitespace collapsed to single spaces.
//   - Locations: every level normalized as a code.
//   - Slices: duplicates and empty values removed after normalization.
package sanitizer
