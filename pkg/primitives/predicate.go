package primitives

// Predicate is a comparison operator applied between two fields.
type Predicate int

const (
	Equals Predicate = iota
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	NotEqual
	Like
)

func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case LessThanOrEqual:
		return "<="
	case GreaterThanOrEqual:
		return ">="
	case NotEqual:
		return "!="
	case Like:
		return "LIKE"
	default:
		return "UNKNOWN"
	}
}

// ParsePredicate converts an operator symbol into a Predicate.
func ParsePredicate(s string) (Predicate, bool) {
	switch s {
	case "=", "==":
		return Equals, true
	case "<":
		return LessThan, true
	case ">":
		return GreaterThan, true
	case "<=":
		return LessThanOrEqual, true
	case ">=":
		return GreaterThanOrEqual, true
	case "!=", "<>":
		return NotEqual, true
	case "LIKE", "like":
		return Like, true
	default:
		return Equals, false
	}
}
