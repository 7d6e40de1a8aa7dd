package plugin

import (
	"github.com/NethermindEth/snplugin/core/crypto"
	"github.com/NethermindEth/snplugin/patcher"
	"github.com/NethermindEth/snplugin/syntax"
)

// handleEvent lowers an `#[event]` function into an event-emission body
// and an ABI event row. The emission body keys the event on the
// Starknet-Keccak of its name and serde-serializes every parameter into
// the data array.
func handleEvent(
	db *syntax.DB, item *syntax.Item,
) (eventFunction, abiEvent patcher.RewriteNode, diagnostics []syntax.Diagnostic) {
	fn := item.Fn
	if fn.Generics != nil {
		diagnostics = append(diagnostics, syntax.Diagnostic{
			Message: "Event functions cannot have generic arguments",
			Ptr:     syntax.StablePtr{Span: fn.Generics.Span},
		})
	}
	for i := range fn.Params {
		param := &fn.Params[i]
		if param.Type == "" {
			diagnostics = append(diagnostics, syntax.Diagnostic{
				Message: "Event parameter must have a type.",
				Ptr:     param.StablePtr(),
			})
		}
	}
	if len(diagnostics) > 0 {
		return nil, nil, diagnostics
	}

	selector, err := crypto.StarknetKeccak([]byte(fn.Name))
	if err != nil {
		diagnostics = append(diagnostics, syntax.Diagnostic{
			Message: "Failed to compute event selector: " + err.Error(),
			Ptr:     item.StablePtr(),
		})
		return nil, nil, diagnostics
	}

	var body []patcher.RewriteNode
	body = append(body, patcher.Text(
		"let mut __keys = array::array_new();\n    "+
			"array::array_append(ref __keys, "+selector.String()+");\n    "+
			"let mut __data = array::array_new();\n    ",
	))
	for i := range fn.Params {
		param := &fn.Params[i]
		body = append(body, patcher.Interpolate(
			"serde::Serde::<$param_type$>::serialize(ref __data, "+param.Name+");\n    ",
			map[string]patcher.RewriteNode{
				"param_type": patcher.Trimmed(param.TypeSpan),
			},
		))
	}
	body = append(body, patcher.Text(
		"starknet::syscalls::emit_event_syscall(\n        "+
			"array::ArrayTrait::span(@__keys), array::ArrayTrait::span(@__data)\n    "+
			").unwrap_syscall()",
	))

	eventFunction = patcher.Interpolate(
		"$declaration$ {\n    $body$\n}",
		map[string]patcher.RewriteNode{
			"declaration": patcher.Trimmed(fn.DeclSpan),
			"body":        patcher.Modified(body...),
		},
	)
	abiEvent = patcher.Interpolate(
		"#["+EventAttr+"]\n        $declaration$;\n        ",
		map[string]patcher.RewriteNode{
			"declaration": patcher.Trimmed(fn.DeclSpan),
		},
	)
	return eventFunction, abiEvent, diagnostics
}
