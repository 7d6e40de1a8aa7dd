package syntax

import "strings"

// parser is an item-level recursive descent parser for the contract
// dialect. It is error tolerant: a malformed item is recorded as a Missing
// item with a diagnostic and parsing continues at the next item boundary.
type parser struct {
	db    *DB
	toks  []Token
	pos   int
	diags []Diagnostic
}

// Parse parses the DB's source into a file node. Parse errors come back as
// diagnostics in the same shape the expander emits.
func Parse(db *DB) (*File, []Diagnostic) {
	p := &parser{db: db}
	for _, tok := range db.tokens {
		if !tok.IsTrivia() {
			p.toks = append(p.toks, tok)
		}
	}
	items := p.parseItems(false)
	linkParents(items, nil)
	return &File{
		Items: items,
		Span:  Span{Start: 0, End: len(db.source)},
	}, p.diags
}

func linkParents(items []Item, parent *Item) {
	for i := range items {
		it := &items[i]
		it.Parent = parent
		if it.Body != nil {
			linkParents(it.Body.Items, it)
		}
	}
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) next() Token {
	tok := p.toks[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) at(text string) bool {
	return p.toks[p.pos].Text == text
}

func (p *parser) accept(text string) (Token, bool) {
	if p.at(text) {
		return p.next(), true
	}
	return Token{}, false
}

func (p *parser) expect(text string) Token {
	if tok, ok := p.accept(text); ok {
		return tok
	}
	tok := p.peek()
	p.report("Expected '"+text+"'.", tok.Span)
	return tok
}

func (p *parser) report(msg string, span Span) {
	p.diags = append(p.diags, Diagnostic{
		Message: msg,
		Ptr:     StablePtr{Span: span},
	})
}

// end returns the end offset of the last consumed token.
func (p *parser) end() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].Span.End
}

var itemKeywords = map[string]bool{
	"const": true, "mod": true, "use": true, "impl": true, "struct": true,
	"enum": true, "type": true, "extern": true, "trait": true, "fn": true,
}

func (p *parser) parseItems(inBody bool) []Item {
	var items []Item
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF || (inBody && tok.Text == "}") {
			return items
		}
		items = append(items, p.parseItem())
	}
}

func (p *parser) parseItem() Item {
	attrs := p.parseAttrs()
	start := p.peek().Span.Start
	if len(attrs) > 0 {
		start = attrs[0].Span.Start
	}
	tok := p.peek()
	var item Item
	switch tok.Text {
	case "const":
		item = p.parseConst()
	case "mod":
		item = p.parseModule()
	case "use":
		item = p.parseUse()
	case "impl":
		item = p.parseImpl()
	case "struct":
		item = p.parseStruct()
	case "enum":
		item = p.parseEnum()
	case "type":
		item = p.parseTypeAlias()
	case "extern":
		item = p.parseExtern()
	case "trait":
		item = p.parseTrait()
	case "fn":
		item = p.parseFunction()
	default:
		p.report("Skipped tokens. Expected: item.", tok.Span)
		p.next()
		p.recoverToItem()
		item = Item{Kind: ItemMissing}
	}
	item.Attrs = attrs
	item.Span = Span{Start: start, End: p.end()}
	return item
}

// recoverToItem drops tokens until the next plausible item start.
func (p *parser) recoverToItem() {
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF || tok.Text == "}" || tok.Text == "#" || itemKeywords[tok.Text] {
			return
		}
		p.next()
		if tok.Text == ";" {
			return
		}
	}
}

func (p *parser) parseAttrs() []Attribute {
	var attrs []Attribute
	for p.at("#") {
		hash := p.next()
		p.expect("[")
		var path strings.Builder
		for !p.at("]") && p.peek().Kind != TokenEOF {
			path.WriteString(p.next().Text)
		}
		close := p.expect("]")
		attrs = append(attrs, Attribute{
			Path: path.String(),
			Span: Span{Start: hash.Span.Start, End: close.Span.End},
		})
	}
	return attrs
}

func (p *parser) parseName() (string, Span) {
	tok := p.peek()
	if tok.Kind != TokenIdent {
		p.report("Expected identifier.", tok.Span)
		return "", Span{Start: tok.Span.Start, End: tok.Span.Start}
	}
	p.next()
	return tok.Text, tok.Span
}

func (p *parser) parseConst() Item {
	p.expect("const")
	name, nameSpan := p.parseName()
	p.skipPastSemicolon()
	return Item{Kind: ItemConst, Name: name, NameSpan: nameSpan}
}

func (p *parser) parseModule() Item {
	p.expect("mod")
	name, nameSpan := p.parseName()
	item := Item{Kind: ItemModule, Name: name, NameSpan: nameSpan}
	if lbrace, ok := p.accept("{"); ok {
		items := p.parseItems(true)
		rbrace := p.expect("}")
		item.Body = &Body{
			Items: items,
			Span:  Span{Start: lbrace.Span.Start, End: rbrace.Span.End},
		}
	} else {
		p.expect(";")
	}
	return item
}

func (p *parser) parseUse() Item {
	p.expect("use")
	path := p.parseUsePath()
	p.expect(";")
	return Item{Kind: ItemUse, Use: path}
}

func (p *parser) parseUsePath() *UsePath {
	path := &UsePath{}
	start := p.peek().Span.Start
	for {
		tok := p.peek()
		if tok.Text == "{" {
			p.next()
			for !p.at("}") && p.peek().Kind != TokenEOF {
				path.Group = append(path.Group, p.parseUsePath())
				if _, ok := p.accept(","); !ok {
					break
				}
			}
			p.expect("}")
			break
		}
		if tok.Kind != TokenIdent {
			p.report("Expected identifier in use path.", tok.Span)
			break
		}
		p.next()
		path.Segments = append(path.Segments, PathSegment{Text: tok.Text, Span: tok.Span})
		if _, ok := p.accept("::"); !ok {
			break
		}
	}
	path.Span = Span{Start: start, End: p.end()}
	return path
}

func (p *parser) parseImpl() Item {
	p.expect("impl")
	name, nameSpan := p.parseName()
	if p.at("<") {
		p.skipBalancedAngles()
	}
	if _, ok := p.accept("="); ok {
		p.skipPastSemicolon()
		return Item{Kind: ItemImplAlias, Name: name, NameSpan: nameSpan}
	}
	// `of TraitPath`, then a body or a semicolon.
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF || tok.Text == "{" || tok.Text == ";" {
			break
		}
		p.next()
	}
	item := Item{Kind: ItemImpl, Name: name, NameSpan: nameSpan}
	if lbrace, ok := p.accept("{"); ok {
		items := p.parseItems(true)
		rbrace := p.expect("}")
		item.Body = &Body{
			Items: items,
			Span:  Span{Start: lbrace.Span.Start, End: rbrace.Span.End},
		}
	} else {
		p.accept(";")
	}
	return item
}

func (p *parser) parseStruct() Item {
	p.expect("struct")
	name, nameSpan := p.parseName()
	if p.at("<") {
		p.skipBalancedAngles()
	}
	fields := p.parseFieldList()
	return Item{Kind: ItemStruct, Name: name, NameSpan: nameSpan, Fields: fields}
}

func (p *parser) parseEnum() Item {
	p.expect("enum")
	name, nameSpan := p.parseName()
	if p.at("<") {
		p.skipBalancedAngles()
	}
	fields := p.parseFieldList()
	return Item{Kind: ItemEnum, Name: name, NameSpan: nameSpan, Fields: fields}
}

// parseFieldList parses `{ name: type, ... }`; the type is optional so enum
// variants without payloads parse too.
func (p *parser) parseFieldList() []Field {
	p.expect("{")
	var fields []Field
	for !p.at("}") && p.peek().Kind != TokenEOF {
		name, nameSpan := p.parseName()
		if name == "" {
			p.next()
			continue
		}
		field := Field{Name: name, NameSpan: nameSpan}
		if _, ok := p.accept(":"); ok {
			field.Type, field.TypeSpan = p.readType(",", "}")
		}
		field.Span = Span{Start: nameSpan.Start, End: p.end()}
		fields = append(fields, field)
		if _, ok := p.accept(","); !ok {
			break
		}
	}
	p.expect("}")
	return fields
}

func (p *parser) parseTypeAlias() Item {
	p.expect("type")
	name, nameSpan := p.parseName()
	p.skipPastSemicolon()
	return Item{Kind: ItemTypeAlias, Name: name, NameSpan: nameSpan}
}

func (p *parser) parseExtern() Item {
	p.expect("extern")
	if p.at("type") {
		p.next()
		name, nameSpan := p.parseName()
		p.skipPastSemicolon()
		return Item{Kind: ItemExternType, Name: name, NameSpan: nameSpan}
	}
	item := p.parseFunction()
	item.Kind = ItemExternFunction
	return item
}

func (p *parser) parseTrait() Item {
	p.expect("trait")
	name, nameSpan := p.parseName()
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF || tok.Text == "{" || tok.Text == ";" {
			break
		}
		p.next()
	}
	if p.at("{") {
		p.skipBalancedBraces()
	} else {
		p.accept(";")
	}
	return Item{Kind: ItemTrait, Name: name, NameSpan: nameSpan}
}

func (p *parser) parseFunction() Item {
	fnTok := p.expect("fn")
	name, nameSpan := p.parseName()
	fn := &Function{Name: name, NameSpan: nameSpan}
	if p.at("<") {
		fn.Generics = p.parseGenericParams()
	}
	p.expect("(")
	fn.Params = p.parseParams()
	p.expect(")")
	if _, ok := p.accept("->"); ok {
		fn.ReturnType, _ = p.readType("{", ";")
	}
	fn.DeclSpan = Span{Start: fnTok.Span.Start, End: p.end()}
	if p.at("{") {
		fn.BodySpan = p.skipBalancedBraces()
		fn.HasBody = true
	} else {
		p.accept(";")
	}
	return Item{Kind: ItemFreeFunction, Name: name, NameSpan: nameSpan, Fn: fn}
}

func (p *parser) parseGenericParams() *GenericParams {
	open := p.expect("<")
	gp := &GenericParams{}
	depth := 1
	for depth > 0 && p.peek().Kind != TokenEOF {
		tok := p.next()
		switch tok.Text {
		case "<":
			depth++
		case ">":
			depth--
		default:
			if depth == 1 && tok.Kind == TokenIdent {
				gp.Names = append(gp.Names, tok.Text)
			}
		}
	}
	gp.Span = Span{Start: open.Span.Start, End: p.end()}
	return gp
}

func (p *parser) parseParams() []Param {
	var params []Param
	for !p.at(")") && p.peek().Kind != TokenEOF {
		start := p.peek().Span.Start
		var param Param
		modStart := start
		for p.at("ref") || p.at("mut") {
			tok := p.next()
			param.Modifiers = append(param.Modifiers, tok.Text)
		}
		if len(param.Modifiers) > 0 {
			param.ModifiersSpan = Span{Start: modStart, End: p.end()}
		} else {
			param.ModifiersSpan = Span{Start: start, End: start}
		}
		param.Name, param.NameSpan = p.parseName()
		if _, ok := p.accept(":"); ok {
			param.Type, param.TypeSpan = p.readType(",", ")")
		}
		param.Span = Span{Start: start, End: p.end()}
		params = append(params, param)
		if _, ok := p.accept(","); !ok {
			break
		}
	}
	return params
}

// readType consumes tokens until one of the stop texts appears at nesting
// depth zero, returning the concatenated trivia-less text and its span.
// Stop tokens are not consumed.
func (p *parser) readType(stops ...string) (string, Span) {
	var b strings.Builder
	start := p.peek().Span.Start
	depth := 0
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF {
			break
		}
		if depth == 0 {
			stop := false
			for _, s := range stops {
				if tok.Text == s {
					stop = true
					break
				}
			}
			if stop {
				break
			}
		}
		switch tok.Text {
		case "<", "(", "[":
			depth++
		case ">", ")", "]":
			depth--
		}
		p.next()
		b.WriteString(tok.Text)
	}
	return b.String(), Span{Start: start, End: p.end()}
}

func (p *parser) skipPastSemicolon() {
	depth := 0
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF {
			return
		}
		if depth == 0 && (tok.Text == ";" || tok.Text == "}") {
			p.accept(";")
			return
		}
		switch tok.Text {
		case "{", "(", "[":
			depth++
		case "}", ")", "]":
			depth--
		}
		p.next()
	}
}

func (p *parser) skipBalancedBraces() Span {
	open := p.expect("{")
	depth := 1
	for depth > 0 && p.peek().Kind != TokenEOF {
		switch p.next().Text {
		case "{":
			depth++
		case "}":
			depth--
		}
	}
	return Span{Start: open.Span.Start, End: p.end()}
}

func (p *parser) skipBalancedAngles() {
	p.expect("<")
	depth := 1
	for depth > 0 && p.peek().Kind != TokenEOF {
		switch p.next().Text {
		case "<":
			depth++
		case ">":
			depth--
		}
	}
}
