// Package view renders JSON view templates against arbitrary input data.
//
// A view template is a JSON object mapping output field names to field specs.
// Each field spec selects how the output value is produced from the input:
//
//	{
//	    "id":      {},                                 // copy the same-named field
//	    "author":  {"from": "user.name"},              // extract via dotted path
//	    "created": {"format": "date"},                 // transform with a helper
//	    "owner":   {"view": "user"},                   // render with another view file
//	    "editor":  {"view": "user", "format": "ref"},  // view for records, helper otherwise
//	    "address": {"city": {}, "street": {}}          // render with an inline template
//	}
//
// Example usage:
//
//	engine := view.New(
//	    view.WithHelpers(view.Helpers{
//	        "date": func(ctx context.Context, value, record any) (any, error) {
//	            return formatDate(value), nil
//	        },
//	    }),
//	    view.WithLogger(logger),
//	)
//
//	out, err := engine.Render(ctx, "views/post.json", post, view.RenderOptions{
//	    Settings: view.Settings{Views: "views"},
//	    Cache:    true,
//	})
//
// Arrays are rendered element by element and keep their order. Rendered
// records are *Object values which marshal to JSON in template field order.
// Missing input yields nil for the field; the key is always present.
package view
