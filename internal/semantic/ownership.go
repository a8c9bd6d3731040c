package semantic

import (
	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/types"
	"github.com/tocinlang/tocin/pkg/token"
)

// OwnershipState is the borrow-checker state of one binding.
type OwnershipState int

const (
	Owned OwnershipState = iota
	Borrowed
	MutableBorrowed
	Moved
)

func (s OwnershipState) String() string {
	switch s {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	case MutableBorrowed:
		return "mutably borrowed"
	}
	return "moved"
}

// OwnershipInfo tracks the ownership status of one binding: its state, the
// active immutable borrow count, the exclusive mutable-borrow flag, and the
// identifiers of current borrowers.
type OwnershipInfo struct {
	Owner           string
	State           OwnershipState
	BorrowCount     int
	MutablyBorrowed bool
	Borrowers       []string
	MovedAt         token.Position
}

// NewOwnershipInfo creates a fresh record in the Owned state.
func NewOwnershipInfo(owner string) *OwnershipInfo {
	return &OwnershipInfo{Owner: owner, State: Owned}
}

// Borrow registers an immutable borrower. Fails while mutably borrowed.
func (o *OwnershipInfo) Borrow(borrower string) bool {
	if o.MutablyBorrowed {
		return false
	}
	o.BorrowCount++
	o.Borrowers = append(o.Borrowers, borrower)
	if o.State == Owned {
		o.State = Borrowed
	}
	return true
}

// BorrowMut registers the exclusive mutable borrower. Fails while any
// borrow is active.
func (o *OwnershipInfo) BorrowMut(borrower string) bool {
	if o.MutablyBorrowed || o.BorrowCount > 0 {
		return false
	}
	o.MutablyBorrowed = true
	o.Borrowers = append(o.Borrowers, borrower)
	o.State = MutableBorrowed
	return true
}

// Return releases one borrow held by borrower.
func (o *OwnershipInfo) Return(borrower string) {
	for i, b := range o.Borrowers {
		if b == borrower {
			o.Borrowers = append(o.Borrowers[:i], o.Borrowers[i+1:]...)
			break
		}
	}
	if o.MutablyBorrowed {
		o.MutablyBorrowed = false
	} else if o.BorrowCount > 0 {
		o.BorrowCount--
	}
	if o.BorrowCount == 0 && !o.MutablyBorrowed && o.State != Moved {
		o.State = Owned
	}
}

// checkUse reports B001 when a moved binding is read. Only the first
// violation per binding per statement is reported to avoid cascades.
func (a *Analyzer) checkUse(sym *SymbolInfo, pos token.Position) {
	if sym.Own == nil || sym.Own.State != Moved {
		return
	}
	if a.movedReported[sym] {
		return
	}
	a.movedReported[sym] = true
	a.reporter.Reportf(report.B001UseAfterMove, pos, report.Error,
		"use of moved value %q (moved at %s)", sym.Name, sym.Own.MovedAt)
}

// recordMove transitions a binding to the Moved state. Moving while
// borrowed is B004; moving an already-moved binding is B001 (reported by
// checkUse at the read).
func (a *Analyzer) recordMove(sym *SymbolInfo, pos token.Position) {
	if sym.Own == nil {
		return
	}
	if sym.Own.BorrowCount > 0 || sym.Own.MutablyBorrowed {
		a.reporter.Reportf(report.B004MoveWhileBorrowed, pos, report.Error,
			"cannot move %q while it is borrowed", sym.Name)
		return
	}
	if sym.Own.State == Moved {
		return
	}
	sym.Own.State = Moved
	sym.Own.MovedAt = pos
}

// checkMutate validates an assignment to a binding: the binding must be
// mutable (B005) and not currently borrowed (B003 immutable, B007 mutable).
func (a *Analyzer) checkMutate(sym *SymbolInfo, pos token.Position) {
	if !sym.Mutable {
		a.reporter.Reportf(report.B005ImmutableMutation, pos, report.Error,
			"cannot assign to immutable binding %q", sym.Name)
		return
	}
	if sym.Own == nil {
		return
	}
	if sym.Own.MutablyBorrowed {
		a.reporter.Reportf(report.B007DoubleMutableBorrow, pos, report.Error,
			"cannot assign to %q while it is mutably borrowed", sym.Name)
		return
	}
	if sym.Own.BorrowCount > 0 {
		a.reporter.Reportf(report.B003MutateWhileBorrow, pos, report.Error,
			"cannot assign to %q while it is immutably borrowed", sym.Name)
		return
	}
	// Assignment re-establishes ownership after a move.
	if sym.Own.State == Moved {
		sym.Own.State = Owned
		delete(a.movedReported, sym)
	}
}

// isMovable reports whether values of t have move semantics. Scalar
// primitives are copied; strings, collections, and user types move.
func isMovable(t types.Type) bool {
	switch tt := t.(type) {
	case nil:
		return false
	case *types.BasicType:
		return tt.Kind() == types.KindString
	case *types.NullableType:
		return isMovable(tt.Base)
	case *types.RefType:
		return true
	case *types.FunctionType:
		return false
	case *types.ParamType:
		return false // conservatively copyable until instantiated
	}
	return true // named, generic, union
}

// canBeMovedFrom validates the operand of an explicit move expression:
// only plain bindings of movable type can be moved from (B006).
func (a *Analyzer) canBeMovedFrom(expr ast.Expression, t types.Type, pos token.Position) *SymbolInfo {
	id, ok := expr.(*ast.Identifier)
	if !ok {
		a.reporter.Report(report.B006InvalidMoveSource,
			"move requires a plain variable operand", pos, report.Error)
		return nil
	}
	sym := a.scope.Resolve(id.Value)
	if sym == nil || sym.Kind != VarSymbol {
		a.reporter.Reportf(report.B006InvalidMoveSource, pos, report.Error,
			"cannot move from %q", id.Value)
		return nil
	}
	if !isMovable(t) {
		a.reporter.Reportf(report.B006InvalidMoveSource, pos, report.Error,
			"values of type %s are copied, not moved", t)
		return nil
	}
	return sym
}

// maybeMoveFrom registers the implicit ownership transfer when an
// expression of movable type is consumed (initializer, plain assignment
// source, or return value).
func (a *Analyzer) maybeMoveFrom(expr ast.Expression, t types.Type) {
	if !isMovable(t) {
		return
	}
	switch e := expr.(type) {
	case *ast.Identifier:
		if sym := a.scope.Resolve(e.Value); sym != nil && sym.Kind == VarSymbol {
			a.recordMove(sym, e.Pos())
		}
	case *ast.MoveExpression:
		// Already handled when the move expression itself was analyzed.
	case *ast.GroupedExpression:
		a.maybeMoveFrom(e.Inner, t)
	}
}

// synthesizeMoveMembers marks classes whose fields include a movable type:
// the compiler generates a move constructor and move assignment operator
// for them ("move movable fields, copy the rest, self-assignment is a
// no-op"); lowering consults this flag.
func (a *Analyzer) synthesizeMoveMembers(info *ClassInfo) {
	for _, name := range info.FieldOrder {
		if isMovable(info.Fields[name]) {
			info.HasMoveMembers = true
			return
		}
	}
}
