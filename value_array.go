package swat

// invokeArray executes an instance operation on an array receiver.
func invokeArray(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	recv := args[0].(*ArrayValue)
	params := args[1:]

	switch name {
	case "clone":
		elems := make([]Value, len(recv.Elems))
		copy(elems, recv.Elems)
		return &ArrayValue{
			Elem:    recv.Elem,
			Elems:   elems,
			Expr:    recv.Expr,
			Addr:    x.NextAddr(),
			LenExpr: recv.LenExpr,
			Digest:  recv.Digest,
		}, nil
	case "equals":
		if len(params) != 1 {
			return x.malformed("array", name, "expected 1 argument, got %d", len(params)), nil
		}
		return NewBooleanValue(params[0] != nil && params[0].Address() == recv.Addr), nil
	default:
		return x.degrade("array", name, "no handler"), nil
	}
}

// NewArray allocates an array of n zero values. The length formula is kept
// when n is symbolic.
func (x *Execution) NewArray(elem Descriptor, n *IntValue) Value {
	if n == nil || n.Value < 0 || n.Value > int64(x.config.MaxArrayLength) {
		return x.degrade("array", "new", "invalid length")
	}

	elems := make([]Value, n.Value)
	for i := range elems {
		elems[i] = zeroValue(elem)
	}
	arr := x.NewArrayOf(elem, elems)
	if n.Expr != nil && !IsConstantExpr(n.Expr) {
		arr.LenExpr = n.Expr
	}
	return arr
}

// zeroValue returns the default element of an array of the given type.
func zeroValue(d Descriptor) Value {
	switch d {
	case DescBool:
		return NewBooleanValue(false)
	case DescChar:
		return NewCharValue(0)
	case DescLong:
		return NewLongValue(0)
	case DescByte, DescShort, DescInt:
		return NewIntValue(0)
	default:
		return nil
	}
}

// loadElem returns element i of arr. A symbolic index selects from the
// array formula.
func (x *Execution) loadElem(arr *ArrayValue, index Value) Value {
	i, idxExpr, ok := intArg([]Value{index}, 0)
	if !ok {
		return x.malformed("array", "load", "index is %T", index)
	} else if i < 0 || i >= int64(len(arr.Elems)) {
		return x.degrade("array", "load", "index out of bounds")
	}

	elem := arr.Elems[i]
	if elem == nil || IsConstantExpr(idxExpr) {
		return elem
	} else if arr.Expr == nil {
		return x.degrade("array", "load", "array formula lost")
	}

	sel := NewSelectExpr(arr.Expr, idxExpr)
	switch elem := elem.(type) {
	case *IntValue:
		return &IntValue{Value: elem.Value, Expr: sel, Bits: elem.Bits}
	case *CharValue:
		return &CharValue{Value: elem.Value, Expr: sel}
	case *BooleanValue:
		return &BooleanValue{Value: elem.Value, Expr: sel}
	case *StringValue:
		return &StringValue{Value: elem.Value, Expr: sel, Addr: elem.Addr}
	default:
		return x.degrade("array", "load", "symbolic index into reference array")
	}
}

// storeArrayElem stores v at index of arr.
func (x *Execution) storeArrayElem(arr *ArrayValue, index, v Value) Value {
	i, idxExpr, ok := intArg([]Value{index}, 0)
	if !ok {
		return x.malformed("array", "store", "index is %T", index)
	} else if i < 0 || i >= int64(len(arr.Elems)) {
		return x.degrade("array", "store", "index out of bounds")
	}
	storeElem(arr, i, idxExpr, v)
	return PlaceHolder
}

// storeElem replaces element i of arr and extends the array formula with
// the store. The formula is dropped if either side is unknown.
func storeElem(arr *ArrayValue, i int64, idxExpr Expr, v Value) {
	arr.Elems[i] = v
	arr.Digest = nil

	if arr.Expr == nil || v == nil || v.Formula() == nil || idxExpr == nil {
		arr.Expr = nil
		return
	} else if ExprSort(v.Formula()) != ArrayElemSort(arr.Expr) {
		arr.Expr = nil
		return
	}
	arr.Expr = NewStoreExpr(arr.Expr, idxExpr, v.Formula())
}
