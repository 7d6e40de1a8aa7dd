package plugin_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/snplugin/plugin"
	"github.com/NethermindEth/snplugin/syntax"
	"github.com/NethermindEth/snplugin/utils"
)

func expandSource(t *testing.T, source string) ([]plugin.Result, *syntax.DB) {
	t.Helper()
	db := syntax.NewDB(source)
	file, diags := syntax.Parse(db)
	require.Empty(t, diags, "unexpected parse diagnostics")
	return plugin.New(utils.NewNopLogger()).ExpandFile(db, file), db
}

func expandContract(t *testing.T, source string) (plugin.Result, *syntax.DB) {
	t.Helper()
	results, db := expandSource(t, source)
	require.Len(t, results, 1)
	return results[0], db
}

func diagMessages(res plugin.Result) []string {
	var messages []string
	for _, diag := range res.Diagnostics {
		messages = append(messages, diag.Message)
	}
	return messages
}

func TestNonContractModuleIsIgnored(t *testing.T) {
	results, _ := expandSource(t, `mod not_a_contract {
    #[starknet::storage]
    struct Storage {}
}`)
	assert.Empty(t, results)
}

func TestContractWithoutBody(t *testing.T) {
	res, _ := expandContract(t, "#[contract]\nmod c;")
	assert.Nil(t, res.Code)
	assert.False(t, res.RemoveOriginalItem)
	assert.Equal(t, []string{"Contracts without body are not supported."}, diagMessages(res))
}

func TestContractWithoutStorageStruct(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod c {
    fn nothing() {}
}`)
	assert.Nil(t, res.Code)
	assert.Equal(t, []string{"Contracts must define a 'Storage' struct."}, diagMessages(res))
}

func TestStorageStructWithoutAttribute(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod c {
    struct Storage {}
}`)
	assert.Nil(t, res.Code)
	assert.Equal(t,
		[]string{"'Storage' struct must be annotated with #[starknet::storage]."},
		diagMessages(res))
}

func TestMinimalContract(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod TestContract {
    #[starknet::storage]
    struct Storage {}
}`)
	require.NotNil(t, res.Code)
	assert.Empty(t, res.Diagnostics)
	assert.True(t, res.RemoveOriginalItem)
	assert.Equal(t, "contract", res.Code.Name)

	content := res.Code.Content
	assert.Contains(t, content, "use starknet::SyscallResultTrait;")
	assert.Contains(t, content, "const TEST_CLASS_HASH: felt252 = ")
	assert.Contains(t, content, "trait __abi<Storage> {")
	assert.Contains(t, content, "mod __external {")
	assert.Contains(t, content, "mod __l1_handler {")
	assert.Contains(t, content, "mod __constructor {")
	assert.Contains(t, content, "mod storage {")

	// Seed use-set appears in every generated submodule.
	assert.Contains(t, content, "use starknet::class_hash::ClassHashSerde;")
	assert.Contains(t, content, "use option::OptionTrait;")

	aux := res.Code.AuxData
	require.NotNil(t, aux)
	assert.Equal(t, "TestContract", aux.ContractName)
	assert.Equal(t, []string{"TestContract"}, aux.Contracts)
}

func TestExternalFunction(t *testing.T) {
	res, db := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[external]
    fn foo(ref self: ContractState, x: felt252) {}
}`)
	require.NotNil(t, res.Code)
	assert.Empty(t, res.Diagnostics)
	content := res.Code.Content

	// The ABI row keeps the signature but drops parameter modifiers.
	assert.Contains(t, content, "#[external]\n        fn foo(self: ContractState, x: felt252);")

	// The dispatcher deserializes calldata, calls through and reserializes.
	external := contentSection(t, content, "mod __external {", "mod __l1_handler {")
	assert.Contains(t, external, "fn foo(mut __data: Span::<felt252>) -> Span::<felt252> {")
	assert.Contains(t, external, "let mut __state = super::unsafe_new_contract_state();")
	assert.Contains(t, external, "let __arg_x = serde::Serde::<felt252>::deserialize(ref __data)")
	assert.Contains(t, external, "super::foo(ref __state, __arg_x);")
	assert.Contains(t, external, "assert(array::SpanTrait::is_empty(__data), 'Input too long');")

	// Every patch copies its original text faithfully.
	aux := res.Code.AuxData
	require.NotEmpty(t, aux.Patches)
	for _, patch := range aux.Patches {
		assert.Equal(t,
			db.Text(patch.OrigSpan),
			content[patch.GenSpan.Start:patch.GenSpan.End])
	}
}

func TestConstructorAndOrdering(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[external]
    fn first(ref self: ContractState) {}

    #[constructor]
    fn constructor(ref self: ContractState, owner: felt252) {}

    #[external]
    fn second(ref self: ContractState) {}
}`)
	require.NotNil(t, res.Code)
	content := res.Code.Content

	external := contentSection(t, content, "mod __external {", "mod __l1_handler {")
	firstIdx := strings.Index(external, "fn first(mut __data")
	secondIdx := strings.Index(external, "fn second(mut __data")
	require.GreaterOrEqual(t, firstIdx, 0)
	require.GreaterOrEqual(t, secondIdx, 0)
	assert.Less(t, firstIdx, secondIdx, "dispatchers must keep source order")

	constructor := contentSection(t, content, "mod __constructor {", "")
	assert.Contains(t, constructor, "fn constructor(mut __data")
	assert.Contains(t, constructor, "let __arg_owner = serde::Serde::<felt252>::deserialize(ref __data)")
}

func TestL1Handler(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[l1_handler]
    fn handle(ref self: ContractState, from_address: felt252, amount: felt252) {}
}`)
		require.NotNil(t, res.Code)
		assert.Empty(t, res.Diagnostics)
		handler := contentSection(t, res.Code.Content, "mod __l1_handler {", "mod __constructor {")
		assert.Contains(t, handler, "fn handle(mut __data")
	})

	t.Run("underscored name is tolerated", func(t *testing.T) {
		res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[l1_handler]
    fn handle(ref self: ContractState, _from_address: felt252) {}
}`)
		assert.Empty(t, res.Diagnostics)
	})

	t.Run("wrong type and name", func(t *testing.T) {
		res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[l1_handler]
    fn h(ref self: ContractState, x: u32) {}
}`)
		assert.Equal(t, []string{
			"The second parameter of an L1 handler must be of type `felt252`.",
			"The second parameter of an L1 handler must be named 'from_address'.",
		}, diagMessages(res))
		// The dispatcher is still generated.
		require.NotNil(t, res.Code)
		assert.Contains(t, res.Code.Content, "fn h(mut __data")
	})

	t.Run("missing second parameter", func(t *testing.T) {
		res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[l1_handler]
    fn h(ref self: ContractState) {}
}`)
		assert.Equal(t,
			[]string{"An L1 handler must have the 'from_address' as its second parameter."},
			diagMessages(res))
	})
}

func TestGenericEntryPoint(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[external]
    fn g<T>(ref self: ContractState) {}
}`)
	assert.Equal(t,
		[]string{"Contract entry points cannot have generic arguments"},
		diagMessages(res))
	// The wrapper is still generated for an otherwise valid signature.
	require.NotNil(t, res.Code)
	assert.Contains(t, res.Code.Content, "fn g(mut __data")
}

func TestNoMutInABITrait(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[external]
    fn set(ref self: ContractState, mut value: felt252) {}
}`)
	require.NotNil(t, res.Code)
	abi := contentSection(t, res.Code.Content, "trait __abi<Storage> {", "mod __external {")
	assert.Contains(t, abi, "fn set(self: ContractState, value: felt252);")
	assert.NotContains(t, abi, "mut")
}

func TestExternalImpl(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[external]
    impl Erc20Impl of Erc20 {
        fn balance_of(self: @ContractState, account: felt252) -> felt252 { 0 }
    }
}`)
	require.NotNil(t, res.Code)
	assert.Empty(t, res.Diagnostics)
	external := contentSection(t, res.Code.Content, "mod __external {", "mod __l1_handler {")
	assert.Contains(t, external, "fn balance_of(mut __data")
	assert.Contains(t, external, "super::Erc20Impl::balance_of(@__state, __arg_account)")
	assert.Contains(t, external, "serde::Serde::<felt252>::serialize(ref __arr, __res);")

	// Impls without the external attribute contribute nothing.
	res2, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    impl Quiet of Erc20 {
        fn balance_of(self: @ContractState, account: felt252) -> felt252 { 0 }
    }
}`)
	assert.NotContains(t, res2.Code.Content, "fn balance_of(mut __data")
}

func TestEventFunction(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}

    #[event]
    fn Transfer(from: felt252, to: felt252, value: u256) {}
}`)
	require.NotNil(t, res.Code)
	assert.Empty(t, res.Diagnostics)
	content := res.Code.Content

	assert.Contains(t, content, "fn Transfer(from: felt252, to: felt252, value: u256) {")
	assert.Contains(t, content, "starknet::syscalls::emit_event_syscall(")
	abi := contentSection(t, content, "trait __abi<Storage> {", "mod __external {")
	assert.Contains(t, abi, "#[event]\n        fn Transfer(from: felt252, to: felt252, value: u256);")
}

func TestUseSet(t *testing.T) {
	t.Run("event reexport sets has_event", func(t *testing.T) {
		res, _ := expandContract(t, `#[contract]
mod c {
    use foo::Event;

    #[starknet::storage]
    struct Storage {}
}`)
		require.NotNil(t, res.Code)
		assert.Contains(t, res.Code.Content, "use super::Event;")
		assert.Contains(t, res.Code.Content, "fn emit(event: Event)")
	})

	t.Run("event enum sets has_event", func(t *testing.T) {
		res, _ := expandContract(t, `#[contract]
mod c {
    enum Event { Transfer: felt252 }

    #[starknet::storage]
    struct Storage {}
}`)
		require.NotNil(t, res.Code)
		assert.Contains(t, res.Code.Content, "use super::Event;")
		assert.Contains(t, res.Code.Content, "fn emit(event: Event)")
	})

	t.Run("user bindings win over the seed", func(t *testing.T) {
		res, _ := expandContract(t, `#[contract]
mod c {
    use my::serde::ClassHashSerde;

    #[starknet::storage]
    struct Storage {}
}`)
		require.NotNil(t, res.Code)
		assert.Contains(t, res.Code.Content, "use super::ClassHashSerde;")
		assert.NotContains(t, res.Code.Content, "use starknet::class_hash::ClassHashSerde;")
	})

	t.Run("named items and grouped uses are re-exported", func(t *testing.T) {
		res, _ := expandContract(t, `#[contract]
mod c {
    const MAX: felt252 = 10;
    struct Helper {}
    use a::{b, c::d};

    #[starknet::storage]
    struct Storage {}
}`)
		require.NotNil(t, res.Code)
		content := res.Code.Content
		assert.Contains(t, content, "use super::MAX;")
		assert.Contains(t, content, "use super::Helper;")
		assert.Contains(t, content, "use super::b;")
		assert.Contains(t, content, "use super::d;")
		// The Storage struct itself is never re-exported.
		assert.NotContains(t, content, "use super::Storage;")
	})
}

func TestStorageExpansion(t *testing.T) {
	res, _ := expandContract(t, `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {
        balance: felt252,
        owner: ContractAddress,
    }
}`)
	require.NotNil(t, res.Code)
	assert.Empty(t, res.Diagnostics)
	content := res.Code.Content

	assert.Contains(t, content, "mod balance {")
	assert.Contains(t, content, "mod owner {")
	assert.Contains(t, content, "fn read() -> felt252 {")
	assert.Contains(t, content, "fn write(value: ContractAddress) {")
	assert.Contains(t, content, "starknet::storage_base_address_const::<")
}

func TestClassHashDeterminism(t *testing.T) {
	withComments := `#[contract]
mod c {
    // a comment that must not change the digest
    #[starknet::storage]
    struct   Storage {}
}`
	without := `#[contract]
mod c {
    #[starknet::storage]
    struct Storage {}
}`
	resA, _ := expandContract(t, withComments)
	resB, _ := expandContract(t, without)
	require.NotNil(t, resA.Code)
	require.NotNil(t, resB.Code)
	assert.Equal(t, classHashLine(t, resA.Code.Content), classHashLine(t, resB.Code.Content))
}

func classHashLine(t *testing.T, content string) string {
	t.Helper()
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "const TEST_CLASS_HASH") {
			return line
		}
	}
	t.Fatal("generated code has no TEST_CLASS_HASH")
	return ""
}

// contentSection returns the slice of content between the first occurrence
// of from and the first occurrence of to after it. An empty to means the
// rest of the content.
func contentSection(t *testing.T, content, from, to string) string {
	t.Helper()
	start := strings.Index(content, from)
	require.GreaterOrEqual(t, start, 0, "section start %q not found", from)
	section := content[start:]
	if to == "" {
		return section
	}
	end := strings.Index(section[len(from):], to)
	require.GreaterOrEqual(t, end, 0, "section end %q not found", to)
	return section[:len(from)+end]
}
