// Package acceptance decides whether an HTTP status code counts as healthy.
//
// The rule is a regular expression matched against the decimal form of the
// status code and anchored at its first character. The default pattern
// accepts the 2xx class:
//
//	eval, err := acceptance.New(acceptance.DefaultPattern)
//	if err != nil {
//	    // malformed pattern, reject the configuration
//	}
//	eval.Accepts(204) // true
//	eval.Accepts(302) // false
package acceptance
