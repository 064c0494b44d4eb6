package models

// Operator compares the left and right expressions of a step.
type Operator string

const (
	OperatorEqual          Operator = "=="
	OperatorNotEqual       Operator = "!="
	OperatorGreater        Operator = ">"
	OperatorLess           Operator = "<"
	OperatorGreaterOrEqual Operator = ">="
	OperatorLessOrEqual    Operator = "<="
	OperatorContains       Operator = "contains"
	OperatorStartsWith     Operator = "startsWith"
	OperatorEndsWith       Operator = "endsWith"
)

// Operators lists every accepted operator in display order.
var Operators = []Operator{
	OperatorEqual,
	OperatorNotEqual,
	OperatorGreater,
	OperatorLess,
	OperatorGreaterOrEqual,
	OperatorLessOrEqual,
	OperatorContains,
	OperatorStartsWith,
	OperatorEndsWith,
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}

	return false
}
