package plugin

import (
	"github.com/NethermindEth/snplugin/patcher"
	"github.com/NethermindEth/snplugin/syntax"
)

// ContractAuxData is surfaced to later compilation phases alongside the
// generated code.
type ContractAuxData struct {
	// ContractName is the name of the expanded contract module.
	ContractName string `yaml:"contract_name"`
	// Patches maps generated byte offsets back to original source spans.
	Patches []patcher.Patch `yaml:"patches"`
	// Contracts lists the contracts found in the file. A module expansion
	// contributes exactly one.
	Contracts []string `yaml:"contracts"`
}

// GeneratedFile is the replacement code produced for a contract module.
type GeneratedFile struct {
	Name    string
	Content string
	AuxData *ContractAuxData
}

// Result is the outcome of one expander invocation. Code is nil when no
// replacement is produced; diagnostics may be present either way.
type Result struct {
	Code               *GeneratedFile
	Diagnostics        []syntax.Diagnostic
	RemoveOriginalItem bool
}
