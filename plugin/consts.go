package plugin

// Attributes recognized on contract items.
const (
	ContractAttr    = "contract"
	EventAttr       = "event"
	ExternalAttr    = "external"
	ConstructorAttr = "constructor"
	L1HandlerAttr   = "l1_handler"
	StorageAttr     = "starknet::storage"
)

// Names that appear verbatim in generated code.
const (
	ABITrait          = "__abi"
	ExternalModule    = "__external"
	L1HandlerModule   = "__l1_handler"
	ConstructorModule = "__constructor"

	StorageStructName       = "Storage"
	L1HandlerFirstParamName = "from_address"
)

// seedUse is one entry of the fixed use-set every generated submodule gets.
type seedUse struct {
	ident string
	path  string
}

// seedUses is merged into the use-set after user names, so user bindings
// win on conflict.
var seedUses = []seedUse{
	{"ClassHashSerde", "starknet::class_hash::ClassHashSerde"},
	{"ContractAddressSerde", "starknet::contract_address::ContractAddressSerde"},
	{"StorageAddressSerde", "starknet::storage_access::StorageAddressSerde"},
	{"OptionTrait", "option::OptionTrait"},
	{"OptionTraitImpl", "option::OptionTraitImpl"},
}
