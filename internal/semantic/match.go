package semantic

import (
	"fmt"
	"sort"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/report"
	"github.com/tocinlang/tocin/internal/types"
	"github.com/tocinlang/tocin/pkg/token"
)

// analyzeMatchStatement checks arms against the scrutinee type, binds
// pattern variables into each arm's scope, and verifies exhaustiveness.
func (a *Analyzer) analyzeMatchStatement(s *ast.MatchStatement) {
	scrutType := a.analyzeExpression(s.Scrutinee)
	cov := newCoverage()

	for _, arm := range s.Arms {
		a.pushScope()
		bindings := map[string]types.Type{}
		a.checkPattern(arm.Pattern, scrutType, bindings)
		a.declareBindings(bindings, arm.Pos())
		if arm.Guard != nil {
			a.analyzeCondition(arm.Guard, "match guard")
		}
		if arm.Body != nil {
			for _, stmt := range arm.Body.Statements {
				a.analyzeStatement(stmt)
			}
		}
		a.recordArmCoverage(cov, arm, scrutType)
		a.popScope()
	}

	a.checkExhaustive(cov, scrutType, s.Pos())
}

// analyzeMatchExpression types a match in value position: arm values are
// unified into the result type.
func (a *Analyzer) analyzeMatchExpression(e *ast.MatchExpression) types.Type {
	scrutType := a.analyzeExpression(e.Scrutinee)
	cov := newCoverage()

	var result types.Type
	for _, arm := range e.Arms {
		a.pushScope()
		bindings := map[string]types.Type{}
		a.checkPattern(arm.Pattern, scrutType, bindings)
		a.declareBindings(bindings, arm.Pos())
		if arm.Guard != nil {
			a.analyzeCondition(arm.Guard, "match guard")
		}
		if arm.Value != nil {
			t := a.analyzeExpressionExpect(arm.Value, result)
			switch {
			case result == nil || types.IsError(result):
				result = t
			case t == nil || types.IsError(t):
			case a.assignable(t, result):
			case a.assignable(result, t):
				result = t
			default:
				a.reporter.Reportf(report.T001TypeMismatch, arm.Value.Pos(), report.Error,
					"match arm has type %s, previous arms have %s", t, result)
			}
		}
		a.recordArmCoverage(cov, arm, scrutType)
		a.popScope()
	}

	a.checkExhaustive(cov, scrutType, e.Pos())
	if result == nil {
		result = types.ERROR
	}
	return result
}

func (a *Analyzer) declareBindings(bindings map[string]types.Type, pos token.Position) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !a.scope.Declare(&SymbolInfo{Name: name, Kind: VarSymbol, Type: bindings[name]}) {
			a.declareDuplicate(name, pos)
		}
	}
}

// checkPattern validates a pattern against the scrutinee type and collects
// its bindings.
func (a *Analyzer) checkPattern(p ast.Pattern, scrut types.Type, bindings map[string]types.Type) {
	if p == nil || scrut == nil {
		return
	}
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		return

	case *ast.LiteralPattern:
		lt := a.analyzeExpression(pat.Value)
		if lt == types.NIL {
			if !types.IsNullable(scrut) && !types.IsError(scrut) {
				a.reporter.Reportf(report.T001TypeMismatch, pat.Pos(), report.Error,
					"nil pattern against non-nullable type %s", scrut)
			}
			return
		}
		base := types.StripNullable(scrut)
		if lt != nil && !types.IsError(lt) && !types.IsError(base) && !lt.Equals(base) {
			a.reporter.Reportf(report.T001TypeMismatch, pat.Pos(), report.Error,
				"literal pattern of type %s against scrutinee of type %s", lt, scrut)
		}

	case *ast.BindingPattern:
		// A bare name that matches a variant of the scrutinee's enum is a
		// nullary constructor test, not a binding.
		if enum := a.scrutineeEnum(scrut); enum != nil {
			if payload, isVariant := enum.Variants[pat.Name]; isVariant {
				if len(payload) != 0 {
					a.reporter.Reportf(report.T007ArgumentCount, pat.Pos(), report.Error,
						"variant %s carries %d values; bind them or use _", pat.Name, len(payload))
				}
				return
			}
		}
		bindings[pat.Name] = scrut

	case *ast.ConstructorPattern:
		a.checkConstructorPattern(pat, scrut, bindings)

	case *ast.TuplePattern:
		// Tuples decompose structurally; each element recurses with the
		// error type when the scrutinee is not decomposable.
		for _, el := range pat.Elements {
			a.checkPattern(el, types.ERROR, bindings)
		}
		if !types.IsError(scrut) {
			a.reporter.Reportf(report.T001TypeMismatch, pat.Pos(), report.Error,
				"tuple pattern against non-tuple type %s", scrut)
		}

	case *ast.StructPattern:
		a.checkStructPattern(pat, scrut, bindings)

	case *ast.OrPattern:
		left := map[string]types.Type{}
		right := map[string]types.Type{}
		a.checkPattern(pat.Left, scrut, left)
		a.checkPattern(pat.Right, scrut, right)
		if !sameBindings(left, right) {
			a.reporter.Report(report.T001TypeMismatch,
				"both sides of | must bind the same names at the same types", pat.Pos(), report.Error)
		}
		for name, t := range left {
			bindings[name] = t
		}

	case *ast.RangePattern:
		base := types.StripNullable(scrut)
		if !isOrdered(base) && !types.IsError(base) {
			a.reporter.Reportf(report.T001TypeMismatch, pat.Pos(), report.Error,
				"range pattern against unordered type %s", scrut)
		}
		for _, end := range []ast.Expression{pat.Low, pat.High} {
			t := a.analyzeExpression(end)
			if t != nil && !types.IsError(t) && !types.IsError(base) && !t.Equals(base) {
				a.reporter.Reportf(report.T001TypeMismatch, end.Pos(), report.Error,
					"range endpoint of type %s against scrutinee of type %s", t, scrut)
			}
		}

	case *ast.TypeTestPattern:
		target := a.resolveTypeExpr(pat.TypeAnn)
		if !types.IsError(target) && !types.IsError(scrut) {
			if !a.assignable(target, scrut) && !a.assignable(scrut, target) {
				a.reporter.Reportf(report.T001TypeMismatch, pat.Pos(), report.Error,
					"type test %s can never match scrutinee of type %s", target, scrut)
			}
		}
		if pat.Name != "_" {
			bindings[pat.Name] = target
		}
	}
}

func (a *Analyzer) checkConstructorPattern(pat *ast.ConstructorPattern, scrut types.Type, bindings map[string]types.Type) {
	enum := a.scrutineeEnum(scrut)
	if enum == nil {
		if !types.IsError(scrut) {
			a.reporter.Reportf(report.T001TypeMismatch, pat.Pos(), report.Error,
				"constructor pattern %s against non-enum type %s", pat.Name, scrut)
		}
		for _, sub := range pat.Args {
			a.checkPattern(sub, types.ERROR, bindings)
		}
		return
	}

	payload, ok := enum.Variants[pat.Name]
	if !ok {
		a.reporter.Reportf(report.T005UndefinedMember, pat.Pos(), report.Error,
			"enum %s has no variant %q", enum.Name, pat.Name)
		for _, sub := range pat.Args {
			a.checkPattern(sub, types.ERROR, bindings)
		}
		return
	}
	if len(pat.Args) != len(payload) {
		a.reporter.Reportf(report.T007ArgumentCount, pat.Pos(), report.Error,
			"variant %s expects %d sub-patterns, got %d", pat.Name, len(payload), len(pat.Args))
	}

	sub := a.scrutineeSubstitution(scrut, enum)
	n := len(pat.Args)
	if len(payload) < n {
		n = len(payload)
	}
	for i := 0; i < n; i++ {
		a.checkPattern(pat.Args[i], types.Substitute(payload[i], sub), bindings)
	}
}

func (a *Analyzer) checkStructPattern(pat *ast.StructPattern, scrut types.Type, bindings map[string]types.Type) {
	info := a.classes[pat.Name]
	if info == nil {
		a.reporter.Reportf(report.T004UndefinedType, pat.Pos(), report.Error,
			"unknown type %q in struct pattern", pat.Name)
		for _, f := range pat.Fields {
			a.checkPattern(f.Pattern, types.ERROR, bindings)
		}
		return
	}

	sub := a.scrutineeSubstitutionClass(scrut, info)
	seen := map[string]bool{}
	for _, f := range pat.Fields {
		ft, ok := info.Fields[f.Name]
		if !ok {
			a.reporter.Reportf(report.T005UndefinedMember, pat.Pos(), report.Error,
				"type %s has no field %q", pat.Name, f.Name)
			a.checkPattern(f.Pattern, types.ERROR, bindings)
			continue
		}
		seen[f.Name] = true
		a.checkPattern(f.Pattern, types.Substitute(ft, sub), bindings)
	}
	if !pat.HasRest {
		for _, name := range info.FieldOrder {
			if !seen[name] {
				a.reporter.Reportf(report.T005UndefinedMember, pat.Pos(), report.Error,
					"struct pattern is missing field %q; add it or use ..", name)
			}
		}
	}
}

// scrutineeEnum returns the enum record a scrutinee type refers to, or nil.
func (a *Analyzer) scrutineeEnum(scrut types.Type) *EnumInfo {
	name, ok := typeName(types.StripNullable(scrut))
	if !ok {
		return nil
	}
	return a.enums[name]
}

func (a *Analyzer) scrutineeSubstitution(scrut types.Type, enum *EnumInfo) types.Substitution {
	g, ok := types.StripNullable(scrut).(*types.GenericType)
	if !ok || len(enum.TypeParams) != len(g.Args) {
		return nil
	}
	sub := types.Substitution{}
	for i, p := range enum.TypeParams {
		sub[p] = g.Args[i]
	}
	return sub
}

func (a *Analyzer) scrutineeSubstitutionClass(scrut types.Type, info *ClassInfo) types.Substitution {
	g, ok := types.StripNullable(scrut).(*types.GenericType)
	if !ok || len(info.TypeParams) != len(g.Args) {
		return nil
	}
	sub := types.Substitution{}
	for i, p := range info.TypeParams {
		sub[p] = g.Args[i]
	}
	return sub
}

func sameBindings(left, right map[string]types.Type) bool {
	if len(left) != len(right) {
		return false
	}
	for name, lt := range left {
		rt, ok := right[name]
		if !ok || !lt.Equals(rt) {
			return false
		}
	}
	return true
}

func isOrdered(t types.Type) bool {
	b, ok := t.(*types.BasicType)
	if !ok {
		return false
	}
	switch b.Kind() {
	case types.KindInt, types.KindFloat32, types.KindFloat64, types.KindString:
		return true
	}
	return false
}

// coverage tracks the value space consumed by the arms seen so far. It is
// a pragmatic usefulness lattice: patterns subtract from the space of
// possible scrutinee values; what remains names the P001 witness.
type coverage struct {
	full      bool
	variants  map[string]bool // fully covered variants
	partials  map[string]bool // variants touched by refutable sub-patterns
	nilSeen   bool
	trueSeen  bool
	falseSeen bool
}

func newCoverage() *coverage {
	return &coverage{variants: map[string]bool{}, partials: map[string]bool{}}
}

// recordArmCoverage folds one arm into the coverage and reports P002 when
// the arm contributes nothing new. Guarded arms never contribute.
func (a *Analyzer) recordArmCoverage(cov *coverage, arm *ast.MatchArm, scrut types.Type) {
	if cov.full {
		a.reporter.Report(report.P002UnreachableArm,
			"unreachable match arm: previous arms cover all values", arm.Pos(), report.Warning)
		return
	}
	if arm.Guard != nil {
		return
	}
	contributed := a.addPattern(cov, arm.Pattern, scrut)
	if !contributed {
		a.reporter.Report(report.P002UnreachableArm,
			"unreachable match arm: pattern adds no new coverage", arm.Pos(), report.Warning)
	}
}

// addPattern folds one pattern into the coverage, returning whether it
// contributed new coverage.
func (a *Analyzer) addPattern(cov *coverage, p ast.Pattern, scrut types.Type) bool {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		if types.IsNullable(scrut) {
			cov.nilSeen = true
		}
		cov.full = true
		return true

	case *ast.BindingPattern:
		if enum := a.scrutineeEnum(scrut); enum != nil {
			if _, isVariant := enum.Variants[pat.Name]; isVariant {
				if cov.variants[pat.Name] {
					return false
				}
				cov.variants[pat.Name] = true
				return true
			}
		}
		if types.IsNullable(scrut) {
			cov.nilSeen = true
		}
		cov.full = true
		return true

	case *ast.ConstructorPattern:
		if cov.variants[pat.Name] {
			return false
		}
		if irrefutableAll(pat.Args) {
			cov.variants[pat.Name] = true
			return true
		}
		first := !cov.partials[pat.Name]
		cov.partials[pat.Name] = true
		return first

	case *ast.LiteralPattern:
		switch v := pat.Value.(type) {
		case *ast.BooleanLiteral:
			if v.Value {
				if cov.trueSeen {
					return false
				}
				cov.trueSeen = true
			} else {
				if cov.falseSeen {
					return false
				}
				cov.falseSeen = true
			}
			if cov.trueSeen && cov.falseSeen && !types.IsNullable(scrut) {
				cov.full = true
			}
			return true
		case *ast.NilLiteral:
			if cov.nilSeen {
				return false
			}
			cov.nilSeen = true
			return true
		}
		return true // literals over unbounded domains never complete coverage

	case *ast.OrPattern:
		left := a.addPattern(cov, pat.Left, scrut)
		right := a.addPattern(cov, pat.Right, scrut)
		return left || right

	case *ast.StructPattern:
		if irrefutableFields(pat) && !types.IsNullable(scrut) {
			cov.full = true
		}
		return true

	case *ast.TuplePattern:
		if irrefutableAll(pat.Elements) && !types.IsNullable(scrut) {
			cov.full = true
		}
		return true

	case *ast.RangePattern, *ast.TypeTestPattern:
		return true
	}
	return true
}

func irrefutableAll(pats []ast.Pattern) bool {
	for _, p := range pats {
		if !irrefutable(p) {
			return false
		}
	}
	return true
}

func irrefutable(p ast.Pattern) bool {
	switch pat := p.(type) {
	case *ast.WildcardPattern, *ast.BindingPattern:
		return true
	case *ast.TuplePattern:
		return irrefutableAll(pat.Elements)
	case *ast.StructPattern:
		return irrefutableFields(pat)
	}
	return false
}

func irrefutableFields(pat *ast.StructPattern) bool {
	for _, f := range pat.Fields {
		if !irrefutable(f.Pattern) {
			return false
		}
	}
	return true
}

// checkExhaustive reports P001 with a witness naming an uncovered value.
func (a *Analyzer) checkExhaustive(cov *coverage, scrut types.Type, pos token.Position) {
	if cov.full || scrut == nil || types.IsError(scrut) {
		return
	}

	if types.IsNullable(scrut) && !cov.nilSeen {
		a.reporter.Report(report.P001NonExhaustiveMatch,
			"non-exhaustive match: nil is not covered", pos, report.Error)
		return
	}

	base := types.StripNullable(scrut)

	if enum := a.scrutineeEnum(scrut); enum != nil {
		for _, variant := range enum.VariantOrder {
			if !cov.variants[variant] {
				a.reporter.Reportf(report.P001NonExhaustiveMatch, pos, report.Error,
					"non-exhaustive match: variant %s is not covered", witnessFor(enum, variant))
				return
			}
		}
		return
	}

	if b, ok := base.(*types.BasicType); ok && b.Kind() == types.KindBool {
		switch {
		case !cov.trueSeen:
			a.reporter.Report(report.P001NonExhaustiveMatch,
				"non-exhaustive match: true is not covered", pos, report.Error)
		case !cov.falseSeen:
			a.reporter.Report(report.P001NonExhaustiveMatch,
				"non-exhaustive match: false is not covered", pos, report.Error)
		}
		return
	}

	a.reporter.Reportf(report.P001NonExhaustiveMatch, pos, report.Error,
		"non-exhaustive match over %s: add a wildcard or default arm", scrut)
}

// witnessFor renders a witness value for a missing variant, e.g. None or
// Some(_).
func witnessFor(enum *EnumInfo, variant string) string {
	payload := enum.Variants[variant]
	if len(payload) == 0 {
		return variant
	}
	args := ""
	for i := range payload {
		if i > 0 {
			args += ", "
		}
		args += "_"
	}
	return fmt.Sprintf("%s(%s)", variant, args)
}
