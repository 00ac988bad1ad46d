package cp

import (
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/samber/lo"

	"github.com/limaJavier/schooltimetable/pkg/sat"
)

// At-most-one groups up to this many literals are written as pairwise clauses, larger ones as a ladder
const pairwiseLimit = 8

// encoding is the CNF image of a Model
type encoding struct {
	instance sat.SAT
	// Literals of each model variable: the variable itself for booleans, order literals
	// [x >= min+1], [x >= min+2], ... for integers
	literals [][]z.Lit
	// The objective equals objectiveOffset plus the number of true objective literals
	objectiveOffset int64
	// objectiveBounds[k] holds iff at most k objective literals are true
	objectiveBounds []z.Lit
	falsity         z.Lit
}

type encoder struct {
	model    *Model
	circuit  *logic.C
	literals [][]z.Lit
	clauses  [][]z.Lit
}

func encode(model *Model) *encoding {
	e := &encoder{model: model, circuit: logic.NewC()}

	e.literals = make([][]z.Lit, len(model.vars))
	for i, v := range model.vars {
		literals := make([]z.Lit, v.max-v.min)
		for k := range literals {
			literals[k] = e.circuit.Lit()
			if k > 0 { // x >= min+k+1 implies x >= min+k
				e.clauses = append(e.clauses, []z.Lit{literals[k].Not(), literals[k-1]})
			}
		}
		e.literals[i] = literals
	}

	for _, constraint := range model.Constraints {
		e.constrain(constraint)
	}

	result := &encoding{literals: e.literals, falsity: e.circuit.F}
	if model.hasObjective {
		literals, offset := e.normalize(model.Objective)
		result.objectiveOffset = offset
		result.objectiveBounds = make([]z.Lit, len(literals)+1)
		if len(literals) > 0 {
			network := logic.NewCardSort(literals, e.circuit)
			for k := range result.objectiveBounds {
				result.objectiveBounds[k] = network.Leq(k)
			}
		} else {
			result.objectiveBounds[0] = e.circuit.T
		}
	}

	collector := &cnfCollector{}
	e.circuit.ToCnf(collector)
	collector.clause(e.circuit.T)
	for _, clause := range e.clauses {
		collector.clause(clause...)
	}

	variables := collector.maxVar
	for _, literals := range e.literals {
		for _, literal := range literals {
			variables = max(variables, uint64(literal.Var()))
		}
	}
	for _, literal := range result.objectiveBounds {
		variables = max(variables, uint64(literal.Var()))
	}
	result.instance = sat.SAT{Variables: variables, Clauses: collector.clauses}
	return result
}

// normalize rewrites a linear expression as offset + (number of true literals). Negative coefficients
// are absorbed through c·x = c + |c|·¬x and a coefficient c repeats its literal |c| times.
func (e *encoder) normalize(expr LinearExpr) ([]z.Lit, int64) {
	literals := make([]z.Lit, 0, len(expr.Terms))
	offset := expr.Constant
	for _, term := range expr.Terms {
		if term.Coef == 0 {
			continue
		}
		offset += term.Coef * e.model.vars[term.Var].min
		for _, literal := range e.literals[term.Var] {
			coef := term.Coef
			if coef < 0 {
				offset += coef
				coef = -coef
				literal = literal.Not()
			}
			for range coef {
				literals = append(literals, literal)
			}
		}
	}
	return literals, offset
}

func (e *encoder) constrain(constraint Constraint) {
	if constraint.Implication {
		e.clauses = append(e.clauses, []z.Lit{e.literals[constraint.If][0].Not(), e.literals[constraint.Then][0]})
		return
	}

	literals, offset := e.normalize(constraint.Expr)
	bound := constraint.Rhs - offset
	switch constraint.Op {
	case LessEq:
		e.cardinality(literals, 0, bound)
	case GreaterEq:
		e.cardinality(literals, bound, int64(len(literals)))
	default:
		e.cardinality(literals, bound, bound)
	}
}

// cardinality requires between atLeast and atMost of the literals (counted with multiplicity) to hold.
// Only the objective goes through a sorting network; constraints use clauses whose size grows with the
// number of literals times the bound.
func (e *encoder) cardinality(literals []z.Lit, atLeast, atMost int64) {
	n := int64(len(literals))
	if atLeast > atMost || atMost < 0 || atLeast > n {
		e.clauses = append(e.clauses, []z.Lit{e.circuit.F})
		return
	}
	distinct := lo.Uniq(literals)

	upper := false
	switch {
	case atMost >= n:
	case atMost == 0:
		for _, literal := range distinct {
			e.clauses = append(e.clauses, []z.Lit{literal.Not()})
		}
	case atMost == n-1:
		e.clauses = append(e.clauses, lo.Map(distinct, func(literal z.Lit, _ int) z.Lit { return literal.Not() }))
	case atMost == 1 && len(distinct) == len(literals):
		e.atMostOne(literals)
	default:
		upper = true
	}

	lower := false
	switch {
	case atLeast <= 0:
	case atLeast == n:
		for _, literal := range distinct {
			e.clauses = append(e.clauses, []z.Lit{literal})
		}
	case atLeast == 1:
		e.clauses = append(e.clauses, distinct)
	case atLeast == n-1 && len(distinct) == len(literals):
		e.atMostOne(lo.Map(literals, func(literal z.Lit, _ int) z.Lit { return literal.Not() }))
	default:
		lower = true
	}

	if !upper && !lower {
		return
	}
	limit := int64(0)
	if upper {
		limit = atMost + 1
	}
	if lower {
		limit = max(limit, atLeast)
	}
	outputs := e.count(literals, int(limit), upper, lower)
	if upper {
		e.clauses = append(e.clauses, []z.Lit{outputs[atMost].Not()})
	}
	if lower {
		e.clauses = append(e.clauses, []z.Lit{outputs[atLeast-1]})
	}
}

// atMostOne writes pairwise clauses for small groups and a ladder otherwise: rung i holds when one of the
// first i+1 literals does, and no literal may hold above a raised rung
func (e *encoder) atMostOne(literals []z.Lit) {
	if len(literals) <= pairwiseLimit {
		for i := range literals {
			for j := i + 1; j < len(literals); j++ {
				e.clauses = append(e.clauses, []z.Lit{literals[i].Not(), literals[j].Not()})
			}
		}
		return
	}

	rung := literals[0]
	for i := 1; i < len(literals); i++ {
		e.clauses = append(e.clauses, []z.Lit{rung.Not(), literals[i].Not()})
		if i == len(literals)-1 {
			break
		}
		next := e.circuit.Lit()
		e.clauses = append(e.clauses,
			[]z.Lit{rung.Not(), next},
			[]z.Lit{literals[i].Not(), next},
		)
		rung = next
	}
}

// count builds a totalizer over the literals and returns its unary outputs, capped at limit: outputs[j]
// stands for "more than j literals hold". With up set, j+1 true literals force outputs[j]; with down
// set, outputs[j] forces j+1 true literals.
func (e *encoder) count(literals []z.Lit, limit int, up, down bool) []z.Lit {
	if len(literals) == 1 {
		return literals
	}
	left := e.count(literals[:len(literals)/2], limit, up, down)
	right := e.count(literals[len(literals)/2:], limit, up, down)

	outputs := make([]z.Lit, min(len(literals), limit))
	for k := range outputs {
		outputs[k] = e.circuit.Lit()
	}
	for i := 0; i <= len(left); i++ {
		for j := 0; j <= len(right); j++ {
			// left >= i and right >= j imply at least i+j
			if up && i+j > 0 {
				clause := make([]z.Lit, 0, 3)
				if i > 0 {
					clause = append(clause, left[i-1].Not())
				}
				if j > 0 {
					clause = append(clause, right[j-1].Not())
				}
				e.clauses = append(e.clauses, append(clause, outputs[min(i+j, len(outputs))-1]))
			}
			// left <= i and right <= j imply at most i+j
			if down && i+j < len(outputs) {
				clause := make([]z.Lit, 0, 3)
				if i < len(left) {
					clause = append(clause, left[i])
				}
				if j < len(right) {
					clause = append(clause, right[j])
				}
				e.clauses = append(e.clauses, append(clause, outputs[i+j].Not()))
			}
		}
	}
	return outputs
}

// EncodedSize returns the number of variables and clauses of the CNF the solver receives for the model
func EncodedSize(model *Model) (variables uint64, clauses int) {
	enc := encode(model)
	return enc.instance.Variables, len(enc.instance.Clauses)
}

// withObjectiveAtMost returns the instance extended with "objective <= bound"
func (enc *encoding) withObjectiveAtMost(bound int64) sat.SAT {
	k := bound - enc.objectiveOffset
	switch {
	case k < 0:
		return enc.instance.With([]int64{int64(enc.falsity.Dimacs())})
	case k >= int64(len(enc.objectiveBounds)):
		return enc.instance
	default:
		return enc.instance.With([]int64{int64(enc.objectiveBounds[k].Dimacs())})
	}
}

func (enc *encoding) decode(model *Model, solution sat.SATSolution) Values {
	assignment := solution.Assignment(enc.instance.Variables)
	holds := func(literal z.Lit) bool {
		if dimacs := literal.Dimacs(); dimacs < 0 {
			return !assignment[-dimacs]
		}
		return assignment[literal.Dimacs()]
	}

	values := make(Values, len(model.vars))
	for i, literals := range enc.literals {
		values[i] = model.vars[i].min + int64(lo.CountBy(literals, holds))
	}
	return values
}

// cnfCollector receives the clauses of a circuit in the z.LitNull-terminated form used by gini
type cnfCollector struct {
	clauses [][]int64
	current []int64
	maxVar  uint64
}

func (collector *cnfCollector) Add(literal z.Lit) {
	if literal == z.LitNull {
		collector.clauses = append(collector.clauses, collector.current)
		collector.current = nil
		return
	}
	collector.maxVar = max(collector.maxVar, uint64(literal.Var()))
	collector.current = append(collector.current, int64(literal.Dimacs()))
}

func (collector *cnfCollector) clause(literals ...z.Lit) {
	for _, literal := range literals {
		collector.Add(literal)
	}
	collector.Add(z.LitNull)
}
