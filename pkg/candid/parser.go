package candid

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrSyntax       = errors.New("candid syntax error")
	ErrUnbound      = errors.New("unbound candid type")
	ErrNoService    = errors.New("candid has no service")
	ErrServiceEmpty = errors.New("service is empty")

	ErrMultipleMethods = errors.New("service must has one method")
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokText
	tokNumber
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) skip() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.src)
				return nil
			}
			l.pos += end + 1
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return fmt.Errorf("%w: unterminated comment at %d", ErrSyntax, l.pos)
			}
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(r byte) bool {
	return r == '_' || unicode.IsLetter(rune(r))
}

func isIdentPart(r byte) bool {
	return isIdentStart(r) || unicode.IsDigit(rune(r))
}

func (l *lexer) next() (token, error) {
	if err := l.skip(); err != nil {
		return token{}, err
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.src[l.pos]
	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}, nil
	case c >= '0' && c <= '9':
		for l.pos < len(l.src) && (isIdentPart(l.src[l.pos])) {
			l.pos++
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}, nil
	case c == '"':
		l.pos++
		var sb strings.Builder
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
				l.pos++
			}
			sb.WriteByte(l.src[l.pos])
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("%w: unterminated text at %d", ErrSyntax, start)
		}
		l.pos++
		return token{kind: tokText, text: sb.String(), pos: start}, nil
	case strings.HasPrefix(l.src[l.pos:], "->"):
		l.pos += 2
		return token{kind: tokSymbol, text: "->", pos: start}, nil
	case strings.ContainsRune(":;,(){}=", rune(c)):
		l.pos++
		return token{kind: tokSymbol, text: string(c), pos: start}, nil
	}
	return token{}, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, c, start)
}

type parser struct {
	tokens []token
	at     int
	defs   map[string]*Type
	order  []string
}

func newParser(src string) (*parser, error) {
	l := &lexer{src: src}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			break
		}
	}
	return &parser{tokens: tokens, defs: make(map[string]*Type)}, nil
}

func (p *parser) peek() token {
	return p.tokens[p.at]
}

func (p *parser) advance() token {
	tok := p.tokens[p.at]
	if tok.kind != tokEOF {
		p.at++
	}
	return tok
}

func (p *parser) lookahead() token {
	if p.at+1 < len(p.tokens) {
		return p.tokens[p.at+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) isSymbol(s string) bool {
	tok := p.peek()
	return tok.kind == tokSymbol && tok.text == s
}

func (p *parser) isKeyword(s string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.text == s
}

func (p *parser) expect(s string) error {
	tok := p.advance()
	if tok.kind == tokSymbol && tok.text == s {
		return nil
	}
	return p.unexpected(tok, s)
}

func (p *parser) unexpected(tok token, want string) error {
	if tok.kind == tokEOF {
		return fmt.Errorf("%w: expected %s, got end of input", ErrSyntax, want)
	}
	return fmt.Errorf("%w: expected %s, got %q at %d", ErrSyntax, want, tok.text, tok.pos)
}

// program parses declarations and the optional service section.
func (p *parser) program() (*Type, error) {
	var service *Type
	for p.peek().kind != tokEOF {
		switch {
		case p.isKeyword("type"):
			if err := p.definition(); err != nil {
				return nil, err
			}
		case p.isKeyword("import"):
			p.advance()
			if tok := p.advance(); tok.kind != tokText {
				return nil, p.unexpected(tok, "import path")
			}
		case p.isKeyword("service"):
			if service != nil {
				return nil, fmt.Errorf("%w: duplicate service", ErrSyntax)
			}
			s, err := p.serviceSection()
			if err != nil {
				return nil, err
			}
			service = s
		default:
			return nil, p.unexpected(p.advance(), "declaration")
		}
		for p.isSymbol(";") {
			p.advance()
		}
	}
	return service, nil
}

func (p *parser) definition() error {
	p.advance()
	name := p.advance()
	if name.kind != tokIdent {
		return p.unexpected(name, "type name")
	}
	if err := p.expect("="); err != nil {
		return err
	}
	t, err := p.dataType()
	if err != nil {
		return err
	}
	if _, exists := p.defs[name.text]; exists {
		return fmt.Errorf("%w: duplicate type %s", ErrSyntax, name.text)
	}
	p.defs[name.text] = t
	p.order = append(p.order, name.text)
	return nil
}

func (p *parser) serviceSection() (*Type, error) {
	p.advance()
	if p.peek().kind == tokIdent {
		p.advance()
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	if p.isSymbol("(") {
		if _, err := p.tuple(); err != nil {
			return nil, err
		}
		if err := p.expect("->"); err != nil {
			return nil, err
		}
	}
	if p.isSymbol("{") {
		return p.actor()
	}
	tok := p.advance()
	if tok.kind != tokIdent {
		return nil, p.unexpected(tok, "service type")
	}
	return &Type{Kind: kindIdent, Name: tok.text}, nil
}

func (p *parser) actor() (*Type, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	t := &Type{Kind: KindService}
	seen := make(map[string]bool)
	for !p.isSymbol("}") {
		name, err := p.name()
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate method %s", ErrSyntax, name)
		}
		seen[name] = true
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		var fn *Func
		if p.isSymbol("(") {
			if fn, err = p.funcType(); err != nil {
				return nil, err
			}
		} else {
			tok := p.advance()
			if tok.kind != tokIdent {
				return nil, p.unexpected(tok, "method type")
			}
			fn = &Func{ref: tok.text}
		}
		t.Methods = append(t.Methods, Method{Name: name, Func: fn})
		if p.isSymbol("}") {
			break
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	p.advance()
	return t, nil
}

func (p *parser) name() (string, error) {
	tok := p.advance()
	if tok.kind == tokIdent || tok.kind == tokText {
		return tok.text, nil
	}
	return "", p.unexpected(tok, "name")
}

func (p *parser) funcType() (*Func, error) {
	args, err := p.tuple()
	if err != nil {
		return nil, err
	}
	if err := p.expect("->"); err != nil {
		return nil, err
	}
	rets, err := p.tuple()
	if err != nil {
		return nil, err
	}
	fn := &Func{Args: args, Rets: rets}
	for {
		tok := p.peek()
		if tok.kind != tokIdent {
			break
		}
		switch tok.text {
		case "query", "composite_query", "oneway":
			fn.Annotations = append(fn.Annotations, tok.text)
			p.advance()
			continue
		}
		break
	}
	return fn, nil
}

func (p *parser) tuple() ([]*Type, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var items []*Type
	for !p.isSymbol(")") {
		// Named arguments carry no type information.
		if next := p.lookahead(); (p.peek().kind == tokIdent || p.peek().kind == tokText) &&
			next.kind == tokSymbol && next.text == ":" {
			p.advance()
			p.advance()
		}
		t, err := p.dataType()
		if err != nil {
			return nil, err
		}
		items = append(items, t)
		if p.isSymbol(")") {
			break
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
	p.advance()
	return items, nil
}

func (p *parser) dataType() (*Type, error) {
	tok := p.advance()
	if tok.kind != tokIdent {
		return nil, p.unexpected(tok, "type")
	}
	if kind, ok := primitives[tok.text]; ok {
		return &Type{Kind: kind}, nil
	}
	switch tok.text {
	case "opt", "vec":
		sub, err := p.dataType()
		if err != nil {
			return nil, err
		}
		kind := KindOpt
		if tok.text == "vec" {
			kind = KindVec
		}
		return &Type{Kind: kind, Sub: sub}, nil
	case "blob":
		return &Type{Kind: KindVec, Sub: &Type{Kind: KindNat8}}, nil
	case "record":
		return p.record()
	case "variant":
		return p.variant()
	case "func":
		fn, err := p.funcType()
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindFunc, Func: fn}, nil
	case "service":
		return p.actor()
	}
	return &Type{Kind: kindIdent, Name: tok.text}, nil
}

// record parses a record body. A record whose fields are all positional is a
// tuple.
func (p *parser) record() (*Type, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var fields []Field
	positional := 0
	for !p.isSymbol("}") {
		var key string
		if next := p.lookahead(); next.kind == tokSymbol && next.text == ":" {
			tok := p.advance()
			if tok.kind != tokIdent && tok.kind != tokText && tok.kind != tokNumber {
				return nil, p.unexpected(tok, "field name")
			}
			key = tok.text
			p.advance()
		} else {
			key = fmt.Sprintf("%d", len(fields))
			positional++
		}
		t, err := p.dataType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: key, Type: t})
		if p.isSymbol("}") {
			break
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	p.advance()
	if positional > 0 && positional == len(fields) {
		items := make([]*Type, len(fields))
		for i, f := range fields {
			items[i] = f.Type
		}
		return &Type{Kind: KindTuple, Items: items}, nil
	}
	return &Type{Kind: KindRecord, Fields: fields}, nil
}

func (p *parser) variant() (*Type, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var fields []Field
	for !p.isSymbol("}") {
		tok := p.advance()
		if tok.kind != tokIdent && tok.kind != tokText && tok.kind != tokNumber {
			return nil, p.unexpected(tok, "variant tag")
		}
		field := Field{Key: tok.text}
		if p.isSymbol(":") {
			p.advance()
			t, err := p.dataType()
			if err != nil {
				return nil, err
			}
			field.Type = t
		}
		fields = append(fields, field)
		if p.isSymbol("}") {
			break
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	p.advance()
	return &Type{Kind: KindVariant, Fields: fields}, nil
}

// resolver replaces alias references by their definitions. A definition that
// refers to itself becomes a Rec node whose inner occurrences are References.
type resolver struct {
	defs      map[string]*Type
	active    map[string]bool
	recursive map[string]bool
}

func newResolver(defs map[string]*Type) *resolver {
	return &resolver{defs: defs, active: make(map[string]bool), recursive: make(map[string]bool)}
}

func (r *resolver) resolve(t *Type) (*Type, error) {
	if t == nil {
		return nil, nil
	}
	switch t.Kind {
	case kindIdent:
		return r.alias(t.Name)
	case KindVec, KindOpt:
		sub, err := r.resolve(t.Sub)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: t.Kind, Sub: sub}, nil
	case KindRecord, KindVariant:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			ft, err := r.resolve(f.Type)
			if err != nil {
				return nil, err
			}
			fields[i] = Field{Key: f.Key, Type: ft}
		}
		return &Type{Kind: t.Kind, Fields: fields}, nil
	case KindTuple:
		items, err := r.all(t.Items)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindTuple, Items: items}, nil
	case KindFunc:
		fn, err := r.function(t.Func)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindFunc, Func: fn}, nil
	case KindService:
		methods := make([]Method, len(t.Methods))
		for i, m := range t.Methods {
			fn, err := r.function(m.Func)
			if err != nil {
				return nil, err
			}
			methods[i] = Method{Name: m.Name, Func: fn}
		}
		return &Type{Kind: KindService, Methods: methods}, nil
	}
	return t, nil
}

func (r *resolver) alias(name string) (*Type, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, name)
	}
	if r.active[name] {
		r.recursive[name] = true
		return &Type{Kind: KindReference, Name: name}, nil
	}
	r.active[name] = true
	inner, err := r.resolve(def)
	delete(r.active, name)
	if err != nil {
		return nil, err
	}
	if r.recursive[name] {
		delete(r.recursive, name)
		return &Type{Kind: KindRec, Name: name, Sub: inner}, nil
	}
	named := *inner
	named.Name = name
	return &named, nil
}

func (r *resolver) all(items []*Type) ([]*Type, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]*Type, len(items))
	for i, item := range items {
		t, err := r.resolve(item)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// function resolves a signature. A method declared by a func alias is
// replaced by the alias' signature.
func (r *resolver) function(fn *Func) (*Func, error) {
	if fn.ref != "" {
		t, err := r.alias(fn.ref)
		if err != nil {
			return nil, err
		}
		for t.Kind == KindRec {
			t = t.Sub
		}
		if t.Kind != KindFunc {
			return nil, fmt.Errorf("%w: %s is not a function", ErrSyntax, fn.ref)
		}
		return t.Func, nil
	}
	args, err := r.all(fn.Args)
	if err != nil {
		return nil, err
	}
	rets, err := r.all(fn.Rets)
	if err != nil {
		return nil, err
	}
	return &Func{Args: args, Rets: rets, Annotations: fn.Annotations}, nil
}

// ParseService parses a complete .did text and returns its service.
func ParseService(src string) (*Service, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	raw, err := p.program()
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNoService
	}
	resolved, err := newResolver(p.defs).resolve(raw)
	if err != nil {
		return nil, err
	}
	for resolved.Kind == KindRec {
		resolved = resolved.Sub
	}
	if resolved.Kind != KindService {
		return nil, fmt.Errorf("%w: service type is not a service", ErrSyntax)
	}
	return &Service{Methods: resolved.Methods}, nil
}

// SelectMethod parses candid and picks the method named method, or the only
// method of the service when method is empty.
func SelectMethod(candid string, method string) (*Func, error) {
	service, err := ParseService(candid)
	if err != nil {
		return nil, err
	}
	if method != "" {
		fn, ok := service.Method(method)
		if !ok {
			return nil, fmt.Errorf("can not find method: %s", method)
		}
		return fn, nil
	}
	switch len(service.Methods) {
	case 0:
		return nil, ErrServiceEmpty
	case 1:
		return service.Methods[0].Func, nil
	}
	return nil, ErrMultipleMethods
}

// SingleAPI wraps a lone method declaration into a service text.
func SingleAPI(api string) string {
	return "service: { " + api + " }"
}

// ParseType parses a standalone type expression with optional definitions
// available for aliases.
func ParseType(defs string, expr string) (*Type, error) {
	p, err := newParser(defs)
	if err != nil {
		return nil, err
	}
	if _, err := p.program(); err != nil {
		return nil, err
	}
	ep, err := newParser(expr)
	if err != nil {
		return nil, err
	}
	raw, err := ep.dataType()
	if err != nil {
		return nil, err
	}
	if tok := ep.peek(); tok.kind != tokEOF {
		return nil, ep.unexpected(tok, "end of type")
	}
	return newResolver(p.defs).resolve(raw)
}
