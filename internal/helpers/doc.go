// Package helpers assembles the helper registry handed to the view engine.
//
// Helpers come from two places: a small set of built-in Go helpers, and a
// YAML declaration file whose entries are compiled by the CEL or Handlebars
// compilers:
//
//	helpers:
//	  fullname:
//	    cel: "record.firstname + ' ' + record.lastname"
//	  greeting:
//	    template: "hello_{{{value}}}"
//
// Declared helpers override built-ins of the same name.
package helpers
