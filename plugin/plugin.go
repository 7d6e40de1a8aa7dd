// Package plugin rewrites modules annotated as Starknet contracts into the
// canonical layout the downstream compiler expects: storage expansion, an
// ABI trait, and submodules holding the generated dispatchers for external
// calls, L1 message handlers and constructors.
package plugin

import (
	"github.com/NethermindEth/snplugin/syntax"
	"github.com/NethermindEth/snplugin/utils"
)

// Plugin wires the expander into an item-visiting host.
type Plugin struct {
	log utils.SimpleLogger
}

func New(log utils.SimpleLogger) *Plugin {
	return &Plugin{log: log}
}

// ExpandItem dispatches on the item kind: module items are gated,
// Storage struct items trigger the full contract expansion. The boolean
// reports whether the item produced a result at all.
func (p *Plugin) ExpandItem(db *syntax.DB, item *syntax.Item) (Result, bool) {
	switch item.Kind {
	case syntax.ItemModule:
		res := ExpandModule(db, item)
		if res.Code == nil && len(res.Diagnostics) == 0 {
			return Result{}, false
		}
		return res, true
	case syntax.ItemStruct:
		res, ok := ExpandContractByStorage(db, item)
		if ok && res.Code != nil {
			p.log.Debugw("Expanded contract module",
				"contract", res.Code.AuxData.ContractName,
				"diagnostics", len(res.Diagnostics),
				"patches", len(res.Code.AuxData.Patches),
			)
		}
		return res, ok
	default:
		return Result{}, false
	}
}

// ExpandFile runs the plugin over every top-level item of a parsed file
// and over the items of every top-level module, the way the host visits
// them. Results come back in source order.
func (p *Plugin) ExpandFile(db *syntax.DB, file *syntax.File) []Result {
	var results []Result
	for i := range file.Items {
		item := &file.Items[i]
		if res, ok := p.ExpandItem(db, item); ok {
			results = append(results, res)
		}
		if item.Kind == syntax.ItemModule && item.Body != nil {
			for j := range item.Body.Items {
				if res, ok := p.ExpandItem(db, &item.Body.Items[j]); ok {
					results = append(results, res)
				}
			}
		}
	}
	return results
}
