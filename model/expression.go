package model

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
)

type opcode uint8

const (
	opConst opcode = iota
	opPredictor
	opParam
	opAdd
	opSub
	opMul
	opDiv
	opNeg
	opExp
	opLog
	opSqrt
	opPow
)

type instr struct {
	op  opcode
	arg int     // parameter index for opParam
	val float64 // literal for opConst
}

// builtin functions accepted in mean functions, keyed by name with their arity.
var builtins = map[string]struct {
	op    opcode
	arity int
}{
	"exp":  {opExp, 1},
	"log":  {opLog, 1},
	"sqrt": {opSqrt, 1},
	"pow":  {opPow, 2},
}

// Expression is a compiled mean function.
//
// The source uses Go expression syntax: numeric literals, identifiers, the
// binary operators + - * /, unary minus, parentheses and the functions exp, log,
// sqrt and pow. Identifiers must be the predictor or one of the declared
// parameters. Expressions are immutable and safe for concurrent use; evaluation
// with gradients goes through a per-goroutine Evaluator.
type Expression struct {
	source    string
	predictor string
	params    []string
	used      []bool
	code      []instr
	depth     int
}

// CompileExpression parses src and resolves its identifiers against predictor
// and params. The order of params defines the parameter vector layout used by
// Eval and Evaluator.
func CompileExpression(src, predictor string, params []string) (*Expression, error) {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}

	index := make(map[string]int, len(params))
	for i, p := range params {
		index[p] = i
	}

	c := &compiler{
		expr: &Expression{
			source:    src,
			predictor: predictor,
			params:    append([]string(nil), params...),
			used:      make([]bool, len(params)),
		},
		index: index,
	}
	if err := c.emit(node); err != nil {
		return nil, err
	}

	return c.expr, nil
}

type compiler struct {
	expr  *Expression
	index map[string]int
	depth int
}

func (c *compiler) push(in instr) {
	c.expr.code = append(c.expr.code, in)
	switch in.op {
	case opConst, opPredictor, opParam:
		c.depth++
	case opAdd, opSub, opMul, opDiv, opPow:
		c.depth--
	}
	if c.depth > c.expr.depth {
		c.expr.depth = c.depth
	}
}

func (c *compiler) emit(node ast.Expr) error {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return c.emit(n.X)
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return fmt.Errorf("unsupported literal %s", n.Value)
		}
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", n.Value, err)
		}
		c.push(instr{op: opConst, val: v})
	case *ast.Ident:
		if n.Name == c.expr.predictor {
			c.push(instr{op: opPredictor})
			return nil
		}
		i, ok := c.index[n.Name]
		if !ok {
			return fmt.Errorf("unknown identifier %q", n.Name)
		}
		c.expr.used[i] = true
		c.push(instr{op: opParam, arg: i})
	case *ast.UnaryExpr:
		switch n.Op {
		case token.SUB:
			if err := c.emit(n.X); err != nil {
				return err
			}
			c.push(instr{op: opNeg})
		case token.ADD:
			return c.emit(n.X)
		default:
			return fmt.Errorf("unsupported unary operator %s", n.Op)
		}
	case *ast.BinaryExpr:
		var op opcode
		switch n.Op {
		case token.ADD:
			op = opAdd
		case token.SUB:
			op = opSub
		case token.MUL:
			op = opMul
		case token.QUO:
			op = opDiv
		case token.XOR:
			return fmt.Errorf("operator ^ is not supported, use pow(x, y)")
		default:
			return fmt.Errorf("unsupported operator %s", n.Op)
		}
		if err := c.emit(n.X); err != nil {
			return err
		}
		if err := c.emit(n.Y); err != nil {
			return err
		}
		c.push(instr{op: op})
	case *ast.CallExpr:
		ident, ok := n.Fun.(*ast.Ident)
		if !ok {
			return fmt.Errorf("unsupported call expression")
		}
		fn, ok := builtins[ident.Name]
		if !ok {
			return fmt.Errorf("unknown function %q", ident.Name)
		}
		if len(n.Args) != fn.arity || n.Ellipsis.IsValid() {
			return fmt.Errorf("function %s expects %d argument(s), got %d", ident.Name, fn.arity, len(n.Args))
		}
		for _, arg := range n.Args {
			if err := c.emit(arg); err != nil {
				return err
			}
		}
		c.push(instr{op: fn.op})
	default:
		return fmt.Errorf("unsupported expression %T", node)
	}

	return nil
}

// String returns the source text.
func (e *Expression) String() string { return e.source }

// Predictor returns the predictor identifier.
func (e *Expression) Predictor() string { return e.predictor }

// Params returns the parameter names in vector order.
func (e *Expression) Params() []string { return append([]string(nil), e.params...) }

// NumParams returns the length of the parameter vector.
func (e *Expression) NumParams() int { return len(e.params) }

// Uses reports whether parameter i appears in the source.
func (e *Expression) Uses(i int) bool { return e.used[i] }

// Eval evaluates the expression at predictor value x.
func (e *Expression) Eval(x float64, theta []float64) float64 {
	var fixed [16]float64
	stack := fixed[:0]
	if e.depth > len(fixed) {
		stack = make([]float64, 0, e.depth)
	}

	return evalValue(e.code, x, theta, stack)
}

func evalValue(code []instr, x float64, theta []float64, stack []float64) float64 {
	for _, in := range code {
		switch in.op {
		case opConst:
			stack = append(stack, in.val)
		case opPredictor:
			stack = append(stack, x)
		case opParam:
			stack = append(stack, theta[in.arg])
		case opAdd:
			n := len(stack) - 1
			stack[n-1] += stack[n]
			stack = stack[:n]
		case opSub:
			n := len(stack) - 1
			stack[n-1] -= stack[n]
			stack = stack[:n]
		case opMul:
			n := len(stack) - 1
			stack[n-1] *= stack[n]
			stack = stack[:n]
		case opDiv:
			n := len(stack) - 1
			stack[n-1] /= stack[n]
			stack = stack[:n]
		case opPow:
			n := len(stack) - 1
			stack[n-1] = math.Pow(stack[n-1], stack[n])
			stack = stack[:n]
		case opNeg:
			stack[len(stack)-1] = -stack[len(stack)-1]
		case opExp:
			stack[len(stack)-1] = math.Exp(stack[len(stack)-1])
		case opLog:
			stack[len(stack)-1] = math.Log(stack[len(stack)-1])
		case opSqrt:
			stack[len(stack)-1] = math.Sqrt(stack[len(stack)-1])
		}
	}

	return stack[0]
}

// Evaluator evaluates an Expression together with its gradient with respect to
// the parameter vector, using forward-mode differentiation over the compiled
// program. An Evaluator owns scratch space and must not be shared between
// goroutines.
type Evaluator struct {
	expr  *Expression
	vals  []float64
	grads []float64
	value []float64
}

// NewEvaluator creates an Evaluator for e.
func (e *Expression) NewEvaluator() *Evaluator {
	p := len(e.params)

	return &Evaluator{
		expr:  e,
		vals:  make([]float64, e.depth),
		grads: make([]float64, e.depth*p),
		value: make([]float64, 0, e.depth),
	}
}

// Value evaluates the expression without its gradient.
func (ev *Evaluator) Value(x float64, theta []float64) float64 {
	return evalValue(ev.expr.code, x, theta, ev.value[:0])
}

// Gradient evaluates the expression at x and writes d(value)/d(theta) to grad,
// which must have NumParams elements.
func (ev *Evaluator) Gradient(x float64, theta, grad []float64) float64 {
	p := len(ev.expr.params)
	vals := ev.vals
	g := ev.grads
	sp := 0 // stack size

	slot := func(i int) []float64 { return g[i*p : (i+1)*p] }

	for _, in := range ev.expr.code {
		switch in.op {
		case opConst, opPredictor, opParam:
			gs := slot(sp)
			clear(gs)
			switch in.op {
			case opConst:
				vals[sp] = in.val
			case opPredictor:
				vals[sp] = x
			default:
				vals[sp] = theta[in.arg]
				gs[in.arg] = 1
			}
			sp++
		case opAdd:
			sp--
			a, b := slot(sp-1), slot(sp)
			for k := range a {
				a[k] += b[k]
			}
			vals[sp-1] += vals[sp]
		case opSub:
			sp--
			a, b := slot(sp-1), slot(sp)
			for k := range a {
				a[k] -= b[k]
			}
			vals[sp-1] -= vals[sp]
		case opMul:
			sp--
			av, bv := vals[sp-1], vals[sp]
			a, b := slot(sp-1), slot(sp)
			for k := range a {
				a[k] = a[k]*bv + av*b[k]
			}
			vals[sp-1] = av * bv
		case opDiv:
			sp--
			av, bv := vals[sp-1], vals[sp]
			q := av / bv
			a, b := slot(sp-1), slot(sp)
			for k := range a {
				a[k] = (a[k] - q*b[k]) / bv
			}
			vals[sp-1] = q
		case opPow:
			sp--
			av, bv := vals[sp-1], vals[sp]
			v := math.Pow(av, bv)
			a, b := slot(sp-1), slot(sp)
			da := bv * math.Pow(av, bv-1)
			var logA float64
			logComputed := false
			for k := range a {
				dk := da * a[k]
				if b[k] != 0 {
					if !logComputed {
						logA = math.Log(av)
						logComputed = true
					}
					dk += v * logA * b[k]
				}
				a[k] = dk
			}
			vals[sp-1] = v
		case opNeg:
			a := slot(sp - 1)
			for k := range a {
				a[k] = -a[k]
			}
			vals[sp-1] = -vals[sp-1]
		case opExp:
			v := math.Exp(vals[sp-1])
			a := slot(sp - 1)
			for k := range a {
				a[k] *= v
			}
			vals[sp-1] = v
		case opLog:
			u := vals[sp-1]
			a := slot(sp - 1)
			for k := range a {
				a[k] /= u
			}
			vals[sp-1] = math.Log(u)
		case opSqrt:
			s := math.Sqrt(vals[sp-1])
			a := slot(sp - 1)
			for k := range a {
				a[k] *= 0.5 / s
			}
			vals[sp-1] = s
		}
	}

	copy(grad, slot(0))

	return vals[0]
}
