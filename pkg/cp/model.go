package cp

import (
	"fmt"
	"math"
)

// Var identifies a variable of a Model
type Var int

type Kind int

const (
	Bool Kind = iota
	Int
)

type variable struct {
	name     string
	kind     Kind
	min, max int64
}

type Term struct {
	Var  Var
	Coef int64
}

// LinearExpr is Σ Coef·Var + Constant
type LinearExpr struct {
	Terms    []Term
	Constant int64
}

// Sum returns the expression adding every variable with coefficient one
func Sum(vars ...Var) LinearExpr {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	return LinearExpr{Terms: terms}
}

func (expr LinearExpr) Plus(other LinearExpr) LinearExpr {
	terms := make([]Term, 0, len(expr.Terms)+len(other.Terms))
	terms = append(terms, expr.Terms...)
	terms = append(terms, other.Terms...)
	return LinearExpr{Terms: terms, Constant: expr.Constant + other.Constant}
}

func (expr LinearExpr) Minus(other LinearExpr) LinearExpr {
	return expr.Plus(other.Scale(-1))
}

func (expr LinearExpr) Scale(factor int64) LinearExpr {
	terms := make([]Term, len(expr.Terms))
	for i, term := range expr.Terms {
		terms[i] = Term{Var: term.Var, Coef: term.Coef * factor}
	}
	return LinearExpr{Terms: terms, Constant: expr.Constant * factor}
}

func (expr LinearExpr) With(v Var, coef int64) LinearExpr {
	return expr.Plus(LinearExpr{Terms: []Term{{Var: v, Coef: coef}}})
}

func (expr LinearExpr) Eval(values Values) int64 {
	total := expr.Constant
	for _, term := range expr.Terms {
		total += term.Coef * values[term.Var]
	}
	return total
}

type Op int

const (
	LessEq Op = iota
	GreaterEq
	Equal
)

func (op Op) String() string {
	switch op {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "=="
	}
}

// Constraint is either a linear relation Expr Op Rhs or, when Implication is set, If → Then over booleans
type Constraint struct {
	Name        string
	Expr        LinearExpr
	Op          Op
	Rhs         int64
	Implication bool
	If, Then    Var
}

func Leq(name string, expr LinearExpr, rhs int64) Constraint {
	return Constraint{Name: name, Expr: expr, Op: LessEq, Rhs: rhs}
}

func Geq(name string, expr LinearExpr, rhs int64) Constraint {
	return Constraint{Name: name, Expr: expr, Op: GreaterEq, Rhs: rhs}
}

func Eq(name string, expr LinearExpr, rhs int64) Constraint {
	return Constraint{Name: name, Expr: expr, Op: Equal, Rhs: rhs}
}

func Implies(name string, ifVar, thenVar Var) Constraint {
	return Constraint{Name: name, Implication: true, If: ifVar, Then: thenVar}
}

func ExactlyOne(name string, vars ...Var) Constraint {
	return Eq(name, Sum(vars...), 1)
}

func AtMostOne(name string, vars ...Var) Constraint {
	return Leq(name, Sum(vars...), 1)
}

func (constraint Constraint) Holds(values Values) bool {
	if constraint.Implication {
		return values[constraint.If] == 0 || values[constraint.Then] == 1
	}
	lhs := constraint.Expr.Eval(values)
	switch constraint.Op {
	case LessEq:
		return lhs <= constraint.Rhs
	case GreaterEq:
		return lhs >= constraint.Rhs
	default:
		return lhs == constraint.Rhs
	}
}

// Model holds boolean and bounded integer variables, constraints over them and an optional objective to
// minimize
type Model struct {
	vars           []variable
	Constraints    []Constraint
	Objective      LinearExpr
	hasObjective   bool
	objectiveFloor int64
}

func NewModel() *Model {
	return &Model{objectiveFloor: math.MinInt64}
}

func (m *Model) NewBool(name string) Var {
	m.vars = append(m.vars, variable{name: name, kind: Bool, min: 0, max: 1})
	return Var(len(m.vars) - 1)
}

// NewInt adds an integer variable ranging over [min, max]
func (m *Model) NewInt(name string, min, max int64) Var {
	if max < min {
		panic(fmt.Sprintf("empty domain [%d, %d] for variable %v", min, max, name))
	}
	m.vars = append(m.vars, variable{name: name, kind: Int, min: min, max: max})
	return Var(len(m.vars) - 1)
}

func (m *Model) Add(constraints ...Constraint) {
	m.Constraints = append(m.Constraints, constraints...)
}

func (m *Model) Minimize(expr LinearExpr) {
	m.Objective = expr
	m.hasObjective = true
}

// BoundObjective declares a value the objective is known never to go below, which spares the solver
// from refuting smaller bounds
func (m *Model) BoundObjective(floor int64) {
	m.objectiveFloor = floor
}

func (m *Model) HasObjective() bool { return m.hasObjective }

func (m *Model) NumVars() int { return len(m.vars) }

func (m *Model) Name(v Var) string { return m.vars[v].name }

func (m *Model) Kind(v Var) Kind { return m.vars[v].kind }

func (m *Model) Domain(v Var) (min, max int64) { return m.vars[v].min, m.vars[v].max }

// Violations returns the names of the constraints (and out-of-domain variables) the values break
func (m *Model) Violations(values Values) []string {
	violations := make([]string, 0)
	for i, v := range m.vars {
		if values[i] < v.min || values[i] > v.max {
			violations = append(violations, fmt.Sprintf("domain of %v", v.name))
		}
	}
	for _, constraint := range m.Constraints {
		if !constraint.Holds(values) {
			violations = append(violations, constraint.Name)
		}
	}
	return violations
}

// Values holds one value per model variable, indexed by Var
type Values []int64

func (values Values) Bool(v Var) bool { return values[v] != 0 }

func (values Values) Int(v Var) int64 { return values[v] }
