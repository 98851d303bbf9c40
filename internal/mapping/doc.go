// Package mapping loads declarative rule files, validates them and compiles
// them into engine mappings.
//
// # Schema Overview
//
//	version: "1"
//	name: order-to-receipt
//	input: json            # optional, detected from content when empty
//	output: json
//	rules:
//	  - map: customer.first
//	    to: receipt.customer
//	    transform: trim      # or {func: padLeft, args: [5, "0"]}
//	    when: {path: type, equals: person}
//	    default: n/a
//	  - combine: [first, last]
//	    to: fullName
//	    separator: " "
//	  - bulk: user.*
//	    to: out
//	    exclude: [user.password]
//	  - flatten: contact.address
//	    to: out
//	    prefix: addr_
//	  - nest: "data.*"
//	    to: items
//	    as: collection       # object | collection | grouped
//	    key: name
//	  - forEach: items
//	    as: item
//	    into: lines
//	    rules:
//	      - map: $item.sku
//	        to: product
//	  - collect: items
//	    to: lines
//	    rules: [...]
//	  - branch:
//	      - when: {path: kind, equals: a}
//	        rules: [...]
//	      - otherwise: true
//	        rules: [...]
//	  - log: order received
//	    level: debug         # debug | info | warn | error
//	    paths: [id, customer.email]
//
// # Rule Kinds
//
// The kind of a rule entry is the one of map, combine, bulk, flatten, nest,
// forEach, collect, branch or log that appears among its keys. The value of
// that key is the rule's source path, source list, pattern, case list or
// log message. A log rule writes to the mapping's logger and leaves the
// output alone.
//
// # Conditions
//
// A condition names a path and any of exists, equals, notEquals, in,
// matches (a regular expression), gt and lt; every operator given must
// hold. all, any and not combine conditions. func calls a registered
// function with the value at path followed by args and tests the result.
// A function that fails, or returns something other than a boolean, aborts
// the mapping.
//
// # Functions
//
// Transforms, combiners and condition functions are looked up in a
// functions.Registry. Validate checks that they exist and accept the
// number of arguments the rule passes.
package mapping
