package compiler

// Fold evaluates a constant expression with the semantics of the 16-bit
// accumulator. Overflow wraps in two's complement; this is intentional and
// matches what the register does at run time. Division and modulo truncate
// toward zero, so -32768 / -1 wraps back to -32768.
func Fold(e Expr) (int16, error) {
	switch n := e.(type) {
	case *Literal:
		return int16(n.Value), nil

	case *UnaryExpr:
		v, err := Fold(n.Right)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case MINUS:
			return -v, nil
		case PLUS:
			return v, nil
		case TILDE:
			return ^v, nil
		}
		return 0, &EvalError{Pos: n.Pos, Msg: "unknown unary operator " + n.Op.String()}

	case *BinaryExpr:
		l, err := Fold(n.Left)
		if err != nil {
			return 0, err
		}
		r, err := Fold(n.Right)
		if err != nil {
			return 0, err
		}
		return foldBinary(n, l, r)
	}
	return 0, &EvalError{Pos: e.Position(), Msg: "cannot fold " + e.String()}
}

func foldBinary(n *BinaryExpr, l, r int16) (int16, error) {
	switch n.Op {
	case PLUS:
		return l + r, nil
	case MINUS:
		return l - r, nil
	case STAR:
		return l * r, nil
	case SLASH:
		if r == 0 {
			return 0, &EvalError{Pos: n.Pos, Msg: "division by zero in constant expression"}
		}
		return l / r, nil
	case PERCENT:
		if r == 0 {
			return 0, &EvalError{Pos: n.Pos, Msg: "modulo by zero in constant expression"}
		}
		return l % r, nil
	case AMP:
		return l & r, nil
	case PIPE:
		return l | r, nil
	case CARET:
		return l ^ r, nil
	case SHL, SHR:
		if r < 0 {
			return 0, &EvalError{Pos: n.Pos, Msg: "negative shift count in constant expression"}
		}
		if n.Op == SHL {
			return l << uint(r), nil
		}
		return l >> uint(r), nil
	}
	return 0, &EvalError{Pos: n.Pos, Msg: "unknown binary operator " + n.Op.String()}
}
