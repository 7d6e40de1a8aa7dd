package plugin

import (
	"github.com/NethermindEth/snplugin/core/crypto"
	"github.com/NethermindEth/snplugin/patcher"
	"github.com/NethermindEth/snplugin/syntax"
	"github.com/NethermindEth/snplugin/utils"
)

// ExpandModule handles a contract module item. It gates on the contract
// attribute and reports structural problems; code generation itself is
// triggered from ExpandContractByStorage, which holds the Storage struct's
// stable pointer.
func ExpandModule(db *syntax.DB, moduleItem *syntax.Item) Result {
	if moduleItem.Kind != syntax.ItemModule || !moduleItem.HasAttr(ContractAttr) {
		return Result{}
	}
	if moduleItem.Body == nil {
		return Result{
			Diagnostics: []syntax.Diagnostic{{
				Message: "Contracts without body are not supported.",
				Ptr:     moduleItem.StablePtr(),
			}},
		}
	}
	storageStruct := findStorageStruct(moduleItem.Body)
	if storageStruct == nil {
		return Result{
			Diagnostics: []syntax.Diagnostic{{
				Message: "Contracts must define a 'Storage' struct.",
				Ptr:     moduleItem.StablePtr(),
			}},
		}
	}
	if !storageStruct.HasAttr(StorageAttr) {
		return Result{
			Diagnostics: []syntax.Diagnostic{{
				Message: "'Storage' struct must be annotated with #[" + StorageAttr + "].",
				Ptr:     moduleItem.StablePtr(),
			}},
		}
	}
	return Result{}
}

func findStorageStruct(body *syntax.Body) *syntax.Item {
	for i := range body.Items {
		item := &body.Items[i]
		if item.Kind == syntax.ItemStruct && item.Name == StorageStructName {
			return item
		}
	}
	return nil
}

// generationData accumulates the fragments of one contract expansion, in
// source order.
type generationData struct {
	generatedExternalFunctions    []patcher.RewriteNode
	generatedConstructorFunctions []patcher.RewriteNode
	generatedL1HandlerFunctions   []patcher.RewriteNode
	abiFunctions                  []patcher.RewriteNode
	eventFunctions                []patcher.RewriteNode
	abiEvents                     []patcher.RewriteNode
}

// ExpandContractByStorage handles a struct item. It returns false unless
// the struct is the contract's Storage struct, i.e. the first struct named
// Storage inside a module carrying the contract attribute. Otherwise it
// runs the whole contract expansion.
func ExpandContractByStorage(db *syntax.DB, structItem *syntax.Item) (Result, bool) {
	if structItem.Kind != syntax.ItemStruct || structItem.Name != StorageStructName {
		return Result{}, false
	}
	// The gate reports a missing storage attribute; no code either way.
	if !structItem.HasAttr(StorageAttr) {
		return Result{}, false
	}
	moduleItem, ok := structItem.ParentModule()
	if !ok || !moduleItem.HasAttr(ContractAttr) {
		return Result{}, false
	}
	body := moduleItem.Body
	if body == nil {
		return Result{
			Diagnostics: []syntax.Diagnostic{{
				Message: "Contracts without body are not supported.",
				Ptr:     moduleItem.StablePtr(),
			}},
		}, true
	}
	// Later duplicates are not honored.
	if findStorageStruct(body) != structItem {
		return Result{}, false
	}

	var diagnostics []syntax.Diagnostic

	// A mapping from an identifier bound in the module to the path that
	// re-binds it inside the generated submodules.
	extraUses := utils.NewOrderedSet[string, string]()
	hasEvent := false
	for i := range body.Items {
		item := &body.Items[i]
		// Skip elements that only generate other code.
		if item.Kind == syntax.ItemFreeFunction && item.HasAttr(EventAttr) {
			continue
		}
		if item.Kind == syntax.ItemStruct && item.Name == StorageStructName {
			continue
		}
		if (item.Kind == syntax.ItemStruct || item.Kind == syntax.ItemEnum) && item.Name == "Event" {
			hasEvent = true
		}
		switch item.Kind {
		case syntax.ItemConst, syntax.ItemModule, syntax.ItemImpl, syntax.ItemImplAlias,
			syntax.ItemStruct, syntax.ItemEnum, syntax.ItemTypeAlias:
			if item.Name != "" {
				extraUses.PutIfAbsent(item.Name, "super::"+item.Name)
			}
		case syntax.ItemUse:
			for _, leaf := range item.Use.Leaves() {
				if leaf.Ident == "Event" {
					hasEvent = true
				}
				extraUses.PutIfAbsent(leaf.Ident, "super::"+leaf.Ident)
			}
		default:
			// Externs, trait declarations and free functions are not
			// directly required in generated inner modules.
		}
	}
	for _, seed := range seedUses {
		extraUses.PutIfAbsent(seed.ident, seed.path)
	}

	var extraUsesChildren []patcher.RewriteNode
	for _, usePath := range extraUses.List() {
		extraUsesChildren = append(extraUsesChildren, patcher.Text("\n        use "+usePath+";"))
	}
	extraUsesNode := patcher.Modified(extraUsesChildren...)

	var data generationData
	var storageCode patcher.RewriteNode = patcher.Text("")
	for i := range body.Items {
		item := &body.Items[i]
		switch item.Kind {
		case syntax.ItemFreeFunction:
			if item.HasAttr(EventAttr) {
				eventFunction, abiEvent, eventDiagnostics := handleEvent(db, item)
				if eventFunction != nil {
					data.eventFunctions = append(data.eventFunctions, eventFunction)
					data.abiEvents = append(data.abiEvents, abiEvent)
				}
				diagnostics = append(diagnostics, eventDiagnostics...)
				continue
			}
			kind, isEntryPoint := EntryPointKindFromFunction(item)
			if !isEntryPoint {
				continue
			}
			functionName := patcher.Trimmed(item.Fn.NameSpan)
			handleEntryPoint(db, kind, item, functionName, &diagnostics, &data)
		case syntax.ItemImpl:
			if !item.HasAttr(ExternalAttr) || item.Body == nil {
				continue
			}
			implName := patcher.Trimmed(item.NameSpan)
			for j := range item.Body.Items {
				implItem := &item.Body.Items[j]
				if implItem.Kind != syntax.ItemFreeFunction {
					continue
				}
				functionName := patcher.Interpolate(
					"$impl_name$::$func_name$",
					map[string]patcher.RewriteNode{
						"impl_name": implName,
						"func_name": patcher.Trimmed(implItem.Fn.NameSpan),
					},
				)
				handleEntryPoint(db, EntryPointExternal, implItem, functionName, &diagnostics, &data)
			}
		case syntax.ItemStruct:
			if item != structItem {
				continue
			}
			storageNode, storageDiagnostics := handleStorageStruct(db, item, extraUsesNode, hasEvent)
			storageCode = storageNode
			diagnostics = append(diagnostics, storageDiagnostics...)
		}
	}

	testClassHash, err := crypto.StarknetKeccak(
		[]byte(db.TextWithoutTrivia(moduleItem.Span)),
	)
	if err != nil {
		diagnostics = append(diagnostics, syntax.Diagnostic{
			Message: "Failed to compute the contract class hash: " + err.Error(),
			Ptr:     moduleItem.StablePtr(),
		})
		return Result{Diagnostics: diagnostics}, true
	}

	generatedContractMod := patcher.Interpolate(
		"use starknet::SyscallResultTrait;\n"+
			"use starknet::SyscallResultTraitImpl;\n"+
			"\n"+
			"const TEST_CLASS_HASH: felt252 = "+testClassHash.String()+";\n"+
			"$storage_code$\n"+
			"\n"+
			"$event_functions$\n"+
			"\n"+
			"trait "+ABITrait+"<Storage> {\n"+
			"    $abi_functions$\n"+
			"    $abi_events$\n"+
			"}\n"+
			"\n"+
			"mod "+ExternalModule+" {$extra_uses$\n"+
			"\n"+
			"    $generated_external_functions$\n"+
			"}\n"+
			"\n"+
			"mod "+L1HandlerModule+" {$extra_uses$\n"+
			"\n"+
			"    $generated_l1_handler_functions$\n"+
			"}\n"+
			"\n"+
			"mod "+ConstructorModule+" {$extra_uses$\n"+
			"\n"+
			"    $generated_constructor_functions$\n"+
			"}\n",
		map[string]patcher.RewriteNode{
			"storage_code":                    storageCode,
			"event_functions":                 patcher.Modified(data.eventFunctions...),
			"abi_functions":                   patcher.Modified(data.abiFunctions...),
			"abi_events":                      patcher.Modified(data.abiEvents...),
			"extra_uses":                      extraUsesNode,
			"generated_external_functions":    patcher.Modified(data.generatedExternalFunctions...),
			"generated_l1_handler_functions":  patcher.Modified(data.generatedL1HandlerFunctions...),
			"generated_constructor_functions": patcher.Modified(data.generatedConstructorFunctions...),
		},
	)

	builder := patcher.NewPatchBuilder(db)
	builder.AddModified(generatedContractMod)
	code, patches := builder.Finish()
	return Result{
		Code: &GeneratedFile{
			Name:    "contract",
			Content: code,
			AuxData: &ContractAuxData{
				ContractName: moduleItem.Name,
				Patches:      patches,
				Contracts:    []string{moduleItem.Name},
			},
		},
		Diagnostics:        diagnostics,
		RemoveOriginalItem: true,
	}, true
}

// handleEntryPoint records the ABI declaration row for the function and,
// when the wrapper generator succeeds, the dispatcher for its kind.
func handleEntryPoint(
	db *syntax.DB,
	kind EntryPointKind,
	item *syntax.Item,
	functionName patcher.RewriteNode,
	diagnostics *[]syntax.Diagnostic,
	data *generationData,
) {
	fn := item.Fn
	if fn.Generics != nil {
		*diagnostics = append(*diagnostics, syntax.Diagnostic{
			Message: "Contract entry points cannot have generic arguments",
			Ptr:     syntax.StablePtr{Span: fn.Generics.Span},
		})
	}

	data.abiFunctions = append(data.abiFunctions, patcher.Modified(
		patcher.Text("#["+kind.Attr()+"]\n        "),
		abiDeclaration(db, fn),
		patcher.Text(";\n        "),
	))

	wrapper, wrapperDiagnostics := GenerateEntryPointWrapper(db, item, functionName)
	if wrapper == nil {
		*diagnostics = append(*diagnostics, wrapperDiagnostics...)
		return
	}
	var generated *[]patcher.RewriteNode
	switch kind {
	case EntryPointConstructor:
		generated = &data.generatedConstructorFunctions
	case EntryPointL1Handler:
		validateL1HandlerFirstParameter(item, diagnostics)
		generated = &data.generatedL1HandlerFunctions
	default:
		generated = &data.generatedExternalFunctions
	}
	*generated = append(*generated, wrapper, patcher.Text("\n        "))
}

// abiDeclaration copies the function declaration with every parameter
// modifier cleared; `ref` and `mut` never leak into the ABI trait.
func abiDeclaration(db *syntax.DB, fn *syntax.Function) patcher.RewriteNode {
	source := db.Source()
	var children []patcher.RewriteNode
	cursor := fn.DeclSpan.Start
	for i := range fn.Params {
		param := &fn.Params[i]
		if len(param.Modifiers) == 0 {
			continue
		}
		children = append(children, patcher.Copied(syntax.Span{
			Start: cursor,
			End:   param.ModifiersSpan.Start,
		}))
		end := param.ModifiersSpan.End
		for end < len(source) && (source[end] == ' ' || source[end] == '\t') {
			end++
		}
		cursor = end
	}
	children = append(children, patcher.Copied(syntax.Span{
		Start: cursor,
		End:   fn.DeclSpan.End,
	}))
	return patcher.Modified(children...)
}

// validateL1HandlerFirstParameter checks that the parameter after the
// implicit state parameter is `from_address: felt252`, a single leading
// underscore tolerated in the name. The checks are independent so one bad
// signature can raise several diagnostics.
func validateL1HandlerFirstParameter(item *syntax.Item, diagnostics *[]syntax.Diagnostic) {
	params := item.Fn.Params
	if len(params) < 2 {
		*diagnostics = append(*diagnostics, syntax.Diagnostic{
			Message: "An L1 handler must have the 'from_address' as its second parameter.",
			Ptr:     item.StablePtr(),
		})
		return
	}
	param := &params[1]
	if !isFelt252(param.Type) {
		*diagnostics = append(*diagnostics, syntax.Diagnostic{
			Message: "The second parameter of an L1 handler must be of type `felt252`.",
			Ptr:     param.StablePtr(),
		})
	}
	if maybeStripUnderscore(param.Name) != L1HandlerFirstParamName {
		*diagnostics = append(*diagnostics, syntax.Diagnostic{
			Message: "The second parameter of an L1 handler must be named 'from_address'.",
			Ptr:     param.StablePtr(),
		})
	}
}
