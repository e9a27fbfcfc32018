// Package template compiles Handlebars templates into view helpers.
//
// A template helper renders its source with a context holding the extracted
// field value and the full input record, and returns the resulting string.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	helper, err := engine.Compile("{{{record.firstname}}} {{{uppercase record.lastname}}}")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// {"firstname": "John", "lastname": "Doe"} -> "John DOE"
//
// Double-stash expressions ({{value}}) are HTML-escaped as in any Handlebars
// template; use triple-stash ({{{value}}}) for raw output.
//
// Built-in helpers:
//   - uppercase, lowercase, trim - string case and whitespace
//   - default - Return default value if first arg is empty
//   - eq, ne - Equality comparison
//   - contains - Check if string contains substring
//   - join - Join array elements with separator
//   - len - Get length of array/string/map
//
// Example with helpers:
//
//	{{default value "N/A"}}                  # "N/A" if value is empty
//	{{#if (eq record.status "active")}}on{{else}}off{{/if}}
//	{{join record.tags ", "}}                # "a, b, c"
package template
