package tree

// KindEnum is the kind of value a Node holds.
type KindEnum int

const (
	KindNull KindEnum = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k KindEnum) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// IsScalar reports whether the kind holds no children.
func (k KindEnum) IsScalar() bool {
	switch k {
	default:
		return true
	case KindObject, KindArray:
		return false
	}
}

// IsContainer reports whether the kind can hold child nodes.
func (k KindEnum) IsContainer() bool {
	return !k.IsScalar()
}
