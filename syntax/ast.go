package syntax

// Span is a half-open byte range [Start, End) into the source buffer owned
// by the DB that produced the node.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

// StablePtr identifies a syntax node for diagnostics and patch bookkeeping.
// It stays valid for as long as the owning DB is alive.
type StablePtr struct {
	Span Span
}

// Diagnostic is a message attached to a syntax node.
type Diagnostic struct {
	Message string
	Ptr     StablePtr
}

type ItemKind int

const (
	ItemMissing ItemKind = iota
	ItemConst
	ItemModule
	ItemUse
	ItemImpl
	ItemImplAlias
	ItemStruct
	ItemEnum
	ItemTypeAlias
	ItemExternFunction
	ItemExternType
	ItemTrait
	ItemFreeFunction
)

func (k ItemKind) String() string {
	switch k {
	case ItemConst:
		return "const"
	case ItemModule:
		return "module"
	case ItemUse:
		return "use"
	case ItemImpl:
		return "impl"
	case ItemImplAlias:
		return "impl alias"
	case ItemStruct:
		return "struct"
	case ItemEnum:
		return "enum"
	case ItemTypeAlias:
		return "type alias"
	case ItemExternFunction:
		return "extern fn"
	case ItemExternType:
		return "extern type"
	case ItemTrait:
		return "trait"
	case ItemFreeFunction:
		return "fn"
	default:
		return "missing"
	}
}

// Attribute is a `#[path]` annotation. Path is the attribute text with
// trivia dropped, e.g. "starknet::storage".
type Attribute struct {
	Path string
	Span Span
}

// Item is a single declaration. Which auxiliary fields are populated
// depends on Kind: Body for modules, impls and traits, Use for use items,
// Fn for functions, Fields for structs and enums.
type Item struct {
	Kind     ItemKind
	Attrs    []Attribute
	Name     string
	NameSpan Span
	Span     Span

	Body   *Body
	Use    *UsePath
	Fn     *Function
	Fields []Field

	// Parent is the enclosing item (module, impl or trait), nil at file
	// level. Set once by the parser.
	Parent *Item
}

// HasAttr reports whether the item carries an attribute with the given path.
func (it *Item) HasAttr(path string) bool {
	for _, a := range it.Attrs {
		if a.Path == path {
			return true
		}
	}
	return false
}

// Attr returns the first attribute with the given path.
func (it *Item) Attr(path string) (Attribute, bool) {
	for _, a := range it.Attrs {
		if a.Path == path {
			return a, true
		}
	}
	return Attribute{}, false
}

func (it *Item) StablePtr() StablePtr {
	return StablePtr{Span: it.Span}
}

// ParentModule returns the nearest enclosing module item, if any.
func (it *Item) ParentModule() (*Item, bool) {
	for p := it.Parent; p != nil; p = p.Parent {
		if p.Kind == ItemModule {
			return p, true
		}
	}
	return nil, false
}

// Body is a braced item list.
type Body struct {
	Items []Item
	Span  Span
}

// Field is a struct member or enum variant. Type is empty for bare enum
// variants.
type Field struct {
	Name     string
	NameSpan Span
	Type     string
	TypeSpan Span
	Span     Span
}

// Function is the structured signature of a fn item. The body, when
// present, is kept as a raw span; the expander never looks inside it.
type Function struct {
	Name     string
	NameSpan Span

	// Generics is nil when the function declares no generic parameters.
	Generics *GenericParams

	Params     []Param
	ReturnType string

	// DeclSpan covers `fn name<...>(...) -> ty`, attributes excluded.
	DeclSpan Span

	// BodySpan covers the braced body; zero when declared with `;`.
	BodySpan Span
	HasBody  bool
}

type GenericParams struct {
	Names []string
	Span  Span
}

// Param is a single function parameter.
type Param struct {
	// Modifiers holds `ref` and `mut` in source order.
	Modifiers []string
	// ModifiersSpan covers the modifier tokens; zero-length when absent.
	ModifiersSpan Span
	Name          string
	NameSpan      Span
	Type          string
	TypeSpan      Span
	Span          Span
}

func (p *Param) HasModifier(mod string) bool {
	for _, m := range p.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

func (p *Param) StablePtr() StablePtr {
	return StablePtr{Span: p.Span}
}

// PathSegment is one `::`-separated element of a use path.
type PathSegment struct {
	Text string
	Span Span
}

// UsePath is a possibly grouped use tree, e.g. `a::{b, c::d}`.
// Group is non-empty when the path ends in a braced group.
type UsePath struct {
	Segments []PathSegment
	Group    []*UsePath
	Span     Span
}

// UseLeaf is a single identifier bound into scope by a use item.
type UseLeaf struct {
	Ident string
	Ptr   StablePtr
}

// Leaves enumerates, in source order, every leaf identifier the path binds.
func (u *UsePath) Leaves() []UseLeaf {
	if len(u.Group) == 0 {
		if len(u.Segments) == 0 {
			return nil
		}
		last := u.Segments[len(u.Segments)-1]
		return []UseLeaf{{Ident: last.Text, Ptr: StablePtr{Span: last.Span}}}
	}
	var leaves []UseLeaf
	for _, sub := range u.Group {
		leaves = append(leaves, sub.Leaves()...)
	}
	return leaves
}

// File is a parsed source file: a flat ordered item list.
type File struct {
	Items []Item
	Span  Span
}
