package plugin

import (
	"github.com/NethermindEth/snplugin/core/crypto"
	"github.com/NethermindEth/snplugin/patcher"
	"github.com/NethermindEth/snplugin/syntax"
)

// handleStorageStruct expands the `Storage` struct into a `storage`
// submodule: one accessor module per field, addressed by the
// Starknet-Keccak of the field name, plus an event emission helper when
// the contract declares an `Event` type. extraUses re-binds the enclosing
// module's names inside the generated submodule.
func handleStorageStruct(
	db *syntax.DB, item *syntax.Item, extraUses patcher.RewriteNode, hasEvent bool,
) (patcher.RewriteNode, []syntax.Diagnostic) {
	var diagnostics []syntax.Diagnostic
	var members []patcher.RewriteNode

	for i := range item.Fields {
		field := &item.Fields[i]
		if field.Type == "" {
			diagnostics = append(diagnostics, syntax.Diagnostic{
				Message: "Storage fields must have a concrete type.",
				Ptr:     syntax.StablePtr{Span: field.Span},
			})
			continue
		}
		address, err := crypto.StarknetKeccak([]byte(field.Name))
		if err != nil {
			diagnostics = append(diagnostics, syntax.Diagnostic{
				Message: "Failed to compute storage address: " + err.Error(),
				Ptr:     syntax.StablePtr{Span: field.Span},
			})
			continue
		}
		members = append(members, patcher.Interpolate(
			"\n    mod $storage_var_name$ {\n"+
				"        use starknet::SyscallResultTrait;\n"+
				"        use starknet::SyscallResultTraitImpl;\n\n"+
				"        fn address() -> starknet::StorageBaseAddress {\n"+
				"            starknet::storage_base_address_const::<"+address.String()+">()\n"+
				"        }\n"+
				"        fn read() -> $storage_var_type$ {\n"+
				"            starknet::StorageAccess::<$storage_var_type$>::read(0, address())"+
				".unwrap_syscall()\n"+
				"        }\n"+
				"        fn write(value: $storage_var_type$) {\n"+
				"            starknet::StorageAccess::<$storage_var_type$>::write(0, address(), value)"+
				".unwrap_syscall()\n"+
				"        }\n"+
				"    }\n",
			map[string]patcher.RewriteNode{
				"storage_var_name": patcher.Trimmed(field.NameSpan),
				"storage_var_type": patcher.Trimmed(field.TypeSpan),
			},
		))
	}

	if hasEvent {
		members = append(members, patcher.Text(
			"\n    fn emit(event: Event) {\n"+
				"        let mut __keys = array::array_new();\n"+
				"        let mut __data = array::array_new();\n"+
				"        serde::Serde::<Event>::serialize(ref __data, event);\n"+
				"        starknet::syscalls::emit_event_syscall(\n"+
				"            array::ArrayTrait::span(@__keys), array::ArrayTrait::span(@__data)\n"+
				"        ).unwrap_syscall()\n"+
				"    }\n",
		))
	}

	storage := patcher.Interpolate(
		"mod storage {$extra_uses$\n$members$}",
		map[string]patcher.RewriteNode{
			"extra_uses": extraUses,
			"members":    patcher.Modified(members...),
		},
	)
	return storage, diagnostics
}
