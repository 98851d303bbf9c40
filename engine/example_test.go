package engine_test

import (
	"fmt"

	"shape-mapper/engine"
	"shape-mapper/tree"
)

func ExampleMapping_Execute() {
	source := tree.From(map[string]any{
		"customer": map[string]any{"first": "Ada", "last": "Lovelace", "password": "x"},
		"items": []any{
			map[string]any{"sku": "A1", "qty": 2},
			map[string]any{"sku": "B7", "qty": 1},
		},
	})

	m := engine.New("order-to-receipt", []engine.Rule{
		engine.Combine{Sources: []string{"customer.first", "customer.last"}, Target: "receipt.customer"},
		engine.Bulk{Pattern: "customer.*", Target: "raw", Exclude: []string{"*password"}},
		engine.ForEach{Collection: "items", Item: "line", Into: "receipt.lines", Rules: []engine.Rule{
			engine.Simple{Source: "$line.sku", Target: "product"},
			engine.Simple{Source: "$line.qty", Target: "amount"},
		}},
	})

	out, err := m.Execute(source)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(out.Text())
	// Output:
	// {"receipt":{"customer":"Ada Lovelace","lines":[{"product":"A1","amount":2},{"product":"B7","amount":1}]},"raw":{"first":"Ada","last":"Lovelace"}}
}
