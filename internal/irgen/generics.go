package irgen

import (
	"strconv"
	"strings"

	"github.com/tocinlang/tocin/internal/ast"
	"github.com/tocinlang/tocin/internal/types"
)

// monoInstance is one emitted specialization of a generic declaration: the
// canonical type-argument tuple and the IR function name it projects to.
type monoInstance struct {
	args []types.Type
	name string
}

// monomorphize emits one specialization of a generic declaration for a
// substitution and returns its IR name. The cache is keyed by the
// declaration and its canonical type-argument tuple, so two structurally
// identical instantiations share one IR function and distinct same-named
// declarations never collide; the mangled name is only the emission-time
// projection of that key.
func (g *Generator) monomorphize(decl *ast.FunctionDeclaration, sub types.Substitution) string {
	args := make([]types.Type, len(decl.TypeParams))
	for i, tp := range decl.TypeParams {
		args[i] = types.Substitute(types.NewParam(tp.Name), sub)
	}
	for _, inst := range g.mono[decl] {
		if sameTypeTuple(inst.args, args) {
			return inst.name
		}
	}

	name := mangle(decl.Name.Value, decl.TypeParams, sub)
	for i := 2; g.monoNames[name]; i++ {
		name = mangle(decl.Name.Value, decl.TypeParams, sub) + "_" + strconv.Itoa(i)
	}
	g.monoNames[name] = true
	g.mono[decl] = append(g.mono[decl], monoInstance{args: args, name: name})

	savedFn, savedBB := g.fn, g.bb
	savedScopes, savedDefers := g.scopes, g.deferred
	savedSub := g.curSub
	savedMain := g.inMain

	merged := types.Substitution{}
	for k, v := range g.curSub {
		merged[k] = v
	}
	for k, v := range sub {
		merged[k] = v
	}
	g.curSub = merged
	g.scopes = nil
	g.inMain = false

	g.lowerFunction(decl, name, nil)

	g.fn, g.bb = savedFn, savedBB
	g.scopes, g.deferred = savedScopes, savedDefers
	g.curSub = savedSub
	g.inMain = savedMain
	return name
}

func sameTypeTuple(a, b []types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

// mangle produces the stable specialized name Base_ArgA_ArgB_... from the
// declaration's parameter order and the substitution.
func mangle(base string, params []*ast.TypeParam, sub types.Substitution) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, tp := range params {
		sb.WriteByte('_')
		if t, ok := sub[tp.Name]; ok {
			sb.WriteString(mangleType(t))
		} else {
			sb.WriteString("any")
		}
	}
	return sb.String()
}

// mangleType renders one type for a mangled name: alphanumeric and
// underscores only.
func mangleType(t types.Type) string {
	if t == nil {
		return "any"
	}
	r := strings.NewReplacer(
		"<", "_", ">", "", ", ", "_", ",", "_",
		"(", "fn_", ")", "", " -> ", "_to_", "?", "_opt",
		"::", "_", " | ", "_or_", "&&", "_ref", " ", "",
	)
	return r.Replace(t.String())
}
