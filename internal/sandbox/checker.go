// Package sandbox vets and executes user-authored Lua snippets.
//
// Snippets are the action/condition code attached to states and
// transitions. Before a snippet may run, Check (statements) or CheckExpr
// (a single expression) parses it with gopher-lua's own parser and walks
// the syntax tree, rejecting imports, dynamic code loading, file and
// process access, and reflection primitives. Vetted snippets execute in a
// fresh interpreter state with only the base, table, string and math
// libraries opened and the dangerous base globals removed.
//
// The checker guards against what the snippet language can express, not
// against hostile native code; see the engine documentation for the
// threat model.
package sandbox

import (
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// deniedCalls are functions whose invocation is rejected outright:
// dynamic code loading, module import, environment access and raw
// table/metatable manipulation.
var deniedCalls = map[string]struct{}{
	"require":        {},
	"dofile":         {},
	"loadfile":       {},
	"load":           {},
	"loadstring":     {},
	"getfenv":        {},
	"setfenv":        {},
	"rawget":         {},
	"rawset":         {},
	"rawequal":       {},
	"getmetatable":   {},
	"setmetatable":   {},
	"collectgarbage": {},
	"module":         {},
	"newproxy":       {},
}

// deniedGlobals are names whose mere mention is rejected: the globals
// table itself and the library tables that reach the host environment.
var deniedGlobals = map[string]struct{}{
	"_G":        {},
	"_ENV":      {},
	"io":        {},
	"os":        {},
	"debug":     {},
	"package":   {},
	"coroutine": {},
}

// deniedFields are index/attribute names that expose reflection or
// interpreter internals when reached through any object.
var deniedFields = map[string]struct{}{
	"getinfo":    {},
	"getlocal":   {},
	"setlocal":   {},
	"getupvalue": {},
	"setupvalue": {},
	"sethook":    {},
	"gethook":    {},
	"traceback":  {},
	"getfenv":    {},
	"setfenv":    {},
}

// allowedMetamethods are the operator-overload names ordinary expression
// evaluation may reach; every other "__" field is rejected.
var allowedMetamethods = map[string]struct{}{
	"__add":      {},
	"__sub":      {},
	"__mul":      {},
	"__div":      {},
	"__mod":      {},
	"__pow":      {},
	"__unm":      {},
	"__concat":   {},
	"__len":      {},
	"__eq":       {},
	"__lt":       {},
	"__le":       {},
	"__call":     {},
	"__tostring": {},
}

// Check vets an action snippet (a chunk of statements). Known variable
// names may shadow denied library names: a user variable called "os" is
// the user's own value, since the os library is never opened.
// It reports whether the snippet is safe, and the reason when it is not.
func Check(code string, known map[string]struct{}) (bool, string) {
	if strings.TrimSpace(code) == "" {
		return true, ""
	}
	chunk, err := parse.Parse(strings.NewReader(code), "<snippet>")
	if err != nil {
		return false, parseReason(err)
	}
	v := &vetter{known: known}
	v.walkStmts(chunk)
	if len(v.violations) > 0 {
		return false, strings.Join(v.violations, "; ")
	}
	return true, ""
}

// CheckExpr vets a condition snippet, which must be a single expression.
// Assignments and statements do not parse in expression position, so a
// condition can never even be compiled into something that mutates.
func CheckExpr(code string, known map[string]struct{}) (bool, string) {
	if strings.TrimSpace(code) == "" {
		return true, ""
	}
	wrapped := "return (\n" + code + "\n)"
	chunk, err := parse.Parse(strings.NewReader(wrapped), "<condition>")
	if err != nil {
		return false, "condition must be a single expression: " + parseReason(err)
	}
	v := &vetter{known: known}
	v.walkStmts(chunk)
	if len(v.violations) > 0 {
		return false, strings.Join(v.violations, "; ")
	}
	return true, ""
}

func parseReason(err error) string {
	if perr, ok := err.(*parse.Error); ok {
		return fmt.Sprintf("syntax error at line %d, column %d: %s", perr.Pos.Line, perr.Pos.Column, perr.Message)
	}
	return "syntax error: " + err.Error()
}

type vetter struct {
	known      map[string]struct{}
	violations []string
}

func (v *vetter) violatef(line int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	v.violations = append(v.violations, fmt.Sprintf("line %d: %s", line, msg))
}

func (v *vetter) deniedGlobal(name string) bool {
	if _, ok := v.known[name]; ok {
		// A user variable shadows the (unopened) library of the same name.
		return false
	}
	_, ok := deniedGlobals[name]
	return ok
}

func (v *vetter) walkStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		v.walkStmt(s)
	}
}

func (v *vetter) walkStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	switch st := s.(type) {
	case *ast.AssignStmt:
		v.walkExprs(st.Lhs)
		v.walkExprs(st.Rhs)
	case *ast.LocalAssignStmt:
		v.walkExprs(st.Exprs)
	case *ast.FuncCallStmt:
		v.walkExpr(st.Expr)
	case *ast.DoBlockStmt:
		v.walkStmts(st.Stmts)
	case *ast.WhileStmt:
		v.walkExpr(st.Condition)
		v.walkStmts(st.Stmts)
	case *ast.RepeatStmt:
		v.walkExpr(st.Condition)
		v.walkStmts(st.Stmts)
	case *ast.IfStmt:
		v.walkExpr(st.Condition)
		v.walkStmts(st.Then)
		v.walkStmts(st.Else)
	case *ast.NumberForStmt:
		v.walkExpr(st.Init)
		v.walkExpr(st.Limit)
		v.walkExpr(st.Step)
		v.walkStmts(st.Stmts)
	case *ast.GenericForStmt:
		v.walkExprs(st.Exprs)
		v.walkStmts(st.Stmts)
	case *ast.FuncDefStmt:
		if st.Name != nil {
			v.walkExpr(st.Name.Func)
			v.walkExpr(st.Name.Receiver)
		}
		v.walkExpr(st.Func)
	case *ast.ReturnStmt:
		v.walkExprs(st.Exprs)
	}
	// Break, Label and Goto statements carry nothing to inspect.
}

func (v *vetter) walkExprs(exprs []ast.Expr) {
	for _, e := range exprs {
		v.walkExpr(e)
	}
}

func (v *vetter) walkExpr(e ast.Expr) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.IdentExpr:
		if v.deniedGlobal(ex.Value) {
			v.violatef(ex.Line(), "access to '%s' is not allowed", ex.Value)
		}
	case *ast.AttrGetExpr:
		if key, ok := ex.Key.(*ast.StringExpr); ok {
			v.checkField(ex.Line(), key.Value)
		}
		v.walkExpr(ex.Object)
		v.walkExpr(ex.Key)
	case *ast.FuncCallExpr:
		if fn, ok := ex.Func.(*ast.IdentExpr); ok {
			if _, denied := deniedCalls[fn.Value]; denied {
				v.violatef(ex.Line(), "calling '%s' is not allowed", fn.Value)
			}
		}
		// Calls to anything else resolve against the variable store at
		// evaluation time; an unknown name faults there, not here.
		if ex.Method != "" {
			v.checkField(ex.Line(), ex.Method)
		}
		v.walkExpr(ex.Func)
		v.walkExpr(ex.Receiver)
		v.walkExprs(ex.Args)
	case *ast.FunctionExpr:
		v.walkStmts(ex.Stmts)
	case *ast.TableExpr:
		for _, f := range ex.Fields {
			v.walkExpr(f.Key)
			v.walkExpr(f.Value)
		}
	case *ast.LogicalOpExpr:
		v.walkExpr(ex.Lhs)
		v.walkExpr(ex.Rhs)
	case *ast.RelationalOpExpr:
		v.walkExpr(ex.Lhs)
		v.walkExpr(ex.Rhs)
	case *ast.ArithmeticOpExpr:
		v.walkExpr(ex.Lhs)
		v.walkExpr(ex.Rhs)
	case *ast.StringConcatOpExpr:
		v.walkExpr(ex.Lhs)
		v.walkExpr(ex.Rhs)
	case *ast.UnaryMinusOpExpr:
		v.walkExpr(ex.Expr)
	case *ast.UnaryNotOpExpr:
		v.walkExpr(ex.Expr)
	case *ast.UnaryLenOpExpr:
		v.walkExpr(ex.Expr)
	}
	// Literals and vararg expressions carry nothing to inspect.
}

func (v *vetter) checkField(line int, name string) {
	if _, denied := deniedFields[name]; denied {
		v.violatef(line, "access to the attribute '%s' is restricted", name)
		return
	}
	if strings.HasPrefix(name, "__") {
		if _, ok := allowedMetamethods[name]; !ok {
			v.violatef(line, "access to the special attribute '%s' is restricted", name)
		}
	}
}
