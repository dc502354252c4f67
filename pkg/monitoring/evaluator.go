package monitoring

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

// Evaluate parses expr as a Go expression and evaluates it against
// metrics, restricted to a numeric binary-expression subset: identifier
// lookups into metrics, numeric literals, arithmetic (+ - * /),
// comparisons (< <= > >= == !=), and boolean combinators (&& || !).
// There is no general expression-language dependency in the pack, and
// go/parser already ships in the standard library, so this stays
// stdlib-only rather than pulling in a scripting engine for a handful
// of comparison operators.
func Evaluate(expr string, metrics map[string]float64) (bool, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return false, fmt.Errorf("parsing condition %q: %w", expr, err)
	}
	val, err := evalNode(node, metrics)
	if err != nil {
		return false, fmt.Errorf("evaluating condition %q: %w", expr, err)
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean", expr)
	}
	return b, nil
}

// evalNode returns either a float64 or a bool depending on the
// subexpression's position in the tree.
func evalNode(n ast.Expr, metrics map[string]float64) (any, error) {
	switch e := n.(type) {
	case *ast.ParenExpr:
		return evalNode(e.X, metrics)

	case *ast.Ident:
		v, ok := metrics[e.Name]
		if !ok {
			return nil, fmt.Errorf("unknown metric %q", e.Name)
		}
		return v, nil

	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return nil, fmt.Errorf("unsupported literal kind %v", e.Kind)
		}
		var f float64
		if _, err := fmt.Sscanf(e.Value, "%g", &f); err != nil {
			return nil, fmt.Errorf("parsing literal %q: %w", e.Value, err)
		}
		return f, nil

	case *ast.UnaryExpr:
		switch e.Op {
		case token.SUB:
			v, err := numericOperand(e.X, metrics)
			if err != nil {
				return nil, err
			}
			return -v, nil
		case token.NOT:
			v, err := boolOperand(e.X, metrics)
			if err != nil {
				return nil, err
			}
			return !v, nil
		default:
			return nil, fmt.Errorf("unsupported unary operator %v", e.Op)
		}

	case *ast.BinaryExpr:
		return evalBinary(e, metrics)

	default:
		return nil, fmt.Errorf("unsupported expression %T", n)
	}
}

func evalBinary(e *ast.BinaryExpr, metrics map[string]float64) (any, error) {
	switch e.Op {
	case token.LAND, token.LOR:
		left, err := boolOperand(e.X, metrics)
		if err != nil {
			return nil, err
		}
		right, err := boolOperand(e.Y, metrics)
		if err != nil {
			return nil, err
		}
		if e.Op == token.LAND {
			return left && right, nil
		}
		return left || right, nil

	case token.LSS, token.LEQ, token.GTR, token.GEQ, token.EQL, token.NEQ:
		left, err := numericOperand(e.X, metrics)
		if err != nil {
			return nil, err
		}
		right, err := numericOperand(e.Y, metrics)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.LSS:
			return left < right, nil
		case token.LEQ:
			return left <= right, nil
		case token.GTR:
			return left > right, nil
		case token.GEQ:
			return left >= right, nil
		case token.EQL:
			return left == right, nil
		default:
			return left != right, nil
		}

	case token.ADD, token.SUB, token.MUL, token.QUO:
		left, err := numericOperand(e.X, metrics)
		if err != nil {
			return nil, err
		}
		right, err := numericOperand(e.Y, metrics)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.ADD:
			return left + right, nil
		case token.SUB:
			return left - right, nil
		case token.MUL:
			return left * right, nil
		default:
			if right == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return left / right, nil
		}

	default:
		return nil, fmt.Errorf("unsupported operator %v", e.Op)
	}
}

func numericOperand(n ast.Expr, metrics map[string]float64) (float64, error) {
	v, err := evalNode(n, metrics)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected a numeric operand")
	}
	return f, nil
}

func boolOperand(n ast.Expr, metrics map[string]float64) (bool, error) {
	v, err := evalNode(n, metrics)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected a boolean operand")
	}
	return b, nil
}
