// Package validation checks flat string maps against Laravel-style rule
// strings. It validates bean definition documents before they reach the
// container.
//
// # Basic Usage
//
//	v := validation.Make(map[string]string{
//	    "name":  "userService",
//	    "class": "userService",
//	    "scope": "prototype",
//	}, validation.Rules{
//	    "name":  "required|alpha_dash",
//	    "class": "required",
//	    "scope": "nullable|in:singleton,prototype",
//	})
//
//	if err := v.Validate(); err != nil {
//	    // err is the *Errors bag
//	}
//
// Fields are checked in sorted order and each field stops at its first
// failing rule.
//
// # Available Rules
//
// Presence: required, nullable. An empty value ends the field's rules at
// nullable.
//
// Names: alpha_dash, identifier.
//
// Choices and comparisons: in:a,b,c, different:other.
//
// An unknown rule name is reported as a failure on its field.
//
// # Error Bag
//
//	{
//	  "errors": {
//	    "name":  ["The name field is required."],
//	    "scope": ["The selected scope is invalid."]
//	  }
//	}
package validation
