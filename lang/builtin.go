package lang

// Builtin operator parameter names.
const (
	paramSrc = "src"
	paramTgt = "tgt"
)

// envName is the builtins binding exposing the process environment.
const envName = "ENV"

var operators = []ScopeKind{KindCopy, KindCopyDir, KindLink, KindAtParse, KindBitCmp}

// newBuiltins allocates the scope that ends every lookup chain. It binds
// each operator as a template with null src and tgt parameters, and ENV.
func (a *Arena) newBuiltins(env map[string]string) *Scope {
	b := a.New(KindBuiltins, "", nil)

	for _, k := range operators {
		op := a.New(k, k.String(), []ScopeID{b.ID})
		_ = op.BindParam(paramSrc, nil, false)
		_ = op.BindParam(paramTgt, nil, false)
		_ = b.Bind(k.String(), op, false)
	}

	_ = b.Bind(envName, NewEnvironment(env), false)

	return b
}
