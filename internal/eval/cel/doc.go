// Package cel compiles CEL (Common Expression Language) expressions into view helpers.
//
// CEL is a non-Turing complete expression language, which keeps helpers declared
// in configuration fast and side-effect free.
//
// Expressions see two variables:
//   - value: the value extracted for the field being rendered
//   - record: the full input record the field belongs to
//
// Example usage:
//
//	evaluator := cel.NewEvaluator()
//
//	helper, err := evaluator.Compile("record.firstname + ' ' + record.lastname")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := view.New(view.WithHelpers(view.Helpers{"fullname": helper}))
//
// The string extension library is enabled, so lowerAscii, upperAscii, trim,
// replace, split and join are available alongside the standard operators.
// Lists and maps produced by an expression are returned as []any and map[string]any.
package cel
