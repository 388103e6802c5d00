// Package errors provides structured, coded error messages for statehistory.
//
// Every error carries a short code (e.g., "H001") that maps to a registered
// template with a category, a one-line message and a longer explanation.
// Errors raised while replaying a script also carry the script location so
// the CLI can print the offending line.
//
// # Error Categories
//
//   - config: invalid history options or configuration files
//   - policy: equality or cloning failures
//   - runtime: listener panics and use after disposal
//   - script: malformed CLI replay scripts
//   - cli: command-line usage problems
//
// # Usage
//
//	err := errors.New("H001").
//	    WithDetail("debounce=500ms throttle=100ms").
//	    WithSuggestion("Pick one of WithDebounce or WithThrottle")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR H001: Conflicting commit schedules
//	//
//	//   debounce=500ms throttle=100ms
//	//
//	//   Hint: Pick one of WithDebounce or WithThrottle
package errors
