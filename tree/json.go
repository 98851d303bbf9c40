package tree

import (
	"encoding/json"
	"fmt"
	"math"
)

var _ json.Marshaler = (*Node)(nil)

// MarshalJSON renders the node as JSON. Objects keep their key order.
// Non-finite numbers have no JSON form and are reported as errors.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Kind() {
	case KindString:
		return json.Marshal(n.str)
	case KindNumber:
		if math.IsNaN(n.num) || math.IsInf(n.num, 0) {
			return nil, fmt.Errorf("unsupported number %v", n.num)
		}

		return []byte(FormatNumber(n.num)), nil
	case KindBool:
		return json.Marshal(n.flag)
	case KindArray:
		return json.Marshal(n.arr)
	case KindObject:
		return n.obj.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}
