package plugin

import (
	"fmt"
	"strings"

	"github.com/NethermindEth/snplugin/patcher"
	"github.com/NethermindEth/snplugin/syntax"
)

// EntryPointKind labels the externally callable flavors of a contract
// function. The set is closed.
type EntryPointKind int

const (
	EntryPointExternal EntryPointKind = iota
	EntryPointConstructor
	EntryPointL1Handler
)

// Attr returns the attribute name the kind maps to.
func (k EntryPointKind) Attr() string {
	switch k {
	case EntryPointConstructor:
		return ConstructorAttr
	case EntryPointL1Handler:
		return L1HandlerAttr
	default:
		return ExternalAttr
	}
}

// EntryPointKindFromFunction classifies a free function by its attributes.
func EntryPointKindFromFunction(item *syntax.Item) (EntryPointKind, bool) {
	switch {
	case item.HasAttr(ExternalAttr):
		return EntryPointExternal, true
	case item.HasAttr(ConstructorAttr):
		return EntryPointConstructor, true
	case item.HasAttr(L1HandlerAttr):
		return EntryPointL1Handler, true
	default:
		return 0, false
	}
}

// GenerateEntryPointWrapper synthesizes the dispatcher for an entry point:
// a function of the same name taking a calldata span, deserializing each
// argument, calling the user function through wrappedName and serializing
// the result back into a span. On failure it returns diagnostics and no
// code.
func GenerateEntryPointWrapper(
	db *syntax.DB, item *syntax.Item, wrappedName patcher.RewriteNode,
) (patcher.RewriteNode, []syntax.Diagnostic) {
	fn := item.Fn
	var diagnostics []syntax.Diagnostic

	var body []patcher.RewriteNode
	var args []string
	params := fn.Params
	if len(params) > 0 && isStateParam(&params[0]) {
		body = append(body, patcher.Text(
			"let mut __state = super::unsafe_new_contract_state();\n            ",
		))
		switch {
		case params[0].HasModifier("ref"):
			args = append(args, "ref __state")
		case strings.HasPrefix(params[0].Type, "@"):
			args = append(args, "@__state")
		default:
			args = append(args, "__state")
		}
		params = params[1:]
	}

	for i := range params {
		param := &params[i]
		if param.Type == "" {
			diagnostics = append(diagnostics, syntax.Diagnostic{
				Message: "Contract entry point parameter must have a type.",
				Ptr:     param.StablePtr(),
			})
			continue
		}
		body = append(body, patcher.Interpolate(
			fmt.Sprintf(
				"let __arg_%s = serde::Serde::<$param_type$>::deserialize(ref __data)"+
					".expect('Failed to deserialize param #%d');\n            ",
				param.Name, i+1,
			),
			map[string]patcher.RewriteNode{
				"param_type": patcher.Trimmed(param.TypeSpan),
			},
		))
		args = append(args, "__arg_"+param.Name)
	}
	if len(diagnostics) > 0 {
		return nil, diagnostics
	}

	body = append(body, patcher.Text(
		"assert(array::SpanTrait::is_empty(__data), 'Input too long');\n            ",
	))

	call := patcher.Interpolate(
		"super::$wrapped_name$("+strings.Join(args, ", ")+")",
		map[string]patcher.RewriteNode{"wrapped_name": wrappedName},
	)
	if fn.ReturnType == "" {
		body = append(body,
			call,
			patcher.Text(";\n            "+
				"let mut __arr = array::array_new::<felt252>();\n            "+
				"array::ArrayTrait::span(@__arr)"),
		)
	} else {
		body = append(body,
			patcher.Text("let __res = "), call, patcher.Text(";\n            "),
			patcher.Text("let mut __arr = array::array_new::<felt252>();\n            "),
			patcher.Interpolate(
				"serde::Serde::<$ret_type$>::serialize(ref __arr, __res);\n            ",
				map[string]patcher.RewriteNode{
					"ret_type": patcher.Text(fn.ReturnType),
				},
			),
			patcher.Text("array::ArrayTrait::span(@__arr)"),
		)
	}

	wrapper := patcher.Interpolate(
		"fn $function_name$(mut __data: Span::<felt252>) -> Span::<felt252> {\n"+
			"            $body$\n        }",
		map[string]patcher.RewriteNode{
			"function_name": patcher.Trimmed(fn.NameSpan),
			"body":          patcher.Modified(body...),
		},
	)
	return wrapper, nil
}
