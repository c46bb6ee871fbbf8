package vdf

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// ParseOptions configures the text parser.
type ParseOptions struct {
	// Strict rejects input that ends inside a quoted string, an escape,
	// or a nested map, and rejects a closing brace at the outermost
	// level. Non-strict mode treats those as end of input.
	Strict bool

	// Factory builds each (sub)map from its ordered pairs. Defaults to
	// MapFromPairs; pass CaseFoldMapFromPairs for files with
	// inconsistent key casing.
	Factory MapFactory

	// Encoding decodes the input from a non-UTF-8 single-byte encoding
	// (e.g. charmap.ISO8859_1). Nil reads the input as UTF-8.
	Encoding encoding.Encoding
}

// Parser parses text-format VDF into Maps.
type Parser struct {
	opts ParseOptions
}

// NewParser creates a parser with the given options.
func NewParser(opts ParseOptions) *Parser {
	if opts.Factory == nil {
		opts.Factory = MapFromPairs
	}
	return &Parser{opts: opts}
}

// Parse reads a whole text-format document with default strict options.
func Parse(r io.Reader) (*Map, error) {
	return NewParser(ParseOptions{Strict: true}).Parse(r)
}

// ParseString parses a string with default strict options.
func ParseString(s string) (*Map, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a whole document from r into a Map.
func (p *Parser) Parse(r io.Reader) (*Map, error) {
	if p.opts.Encoding != nil {
		r = transform.NewReader(r, p.opts.Encoding.NewDecoder())
	}
	s := &scanner{br: bufio.NewReader(r), opts: p.opts}
	return s.parseMap(false)
}

// ParseString parses a string.
func (p *Parser) ParseString(s string) (*Map, error) {
	return p.Parse(strings.NewReader(s))
}

// token is one completed lexical token: a string, or a finished submap
// when a brace group closed in value position.
type token struct {
	str string
	sub *Map
}

type scanner struct {
	br   *bufio.Reader
	opts ParseOptions
	off  int64 // byte offset into the (decoded) input
}

// parseMap consumes tokens until the matching close brace (inner) or end
// of input (outermost), pairing them up into a Map.
//
// This is a single-pass character state machine with four states: plain,
// quoted, escaped, and comment. Tokenization is context-dependent (a '{'
// inside quotes is literal, '//' inside quotes is not a comment), so
// there is no separate lexer pass.
func (s *scanner) parseMap(inner bool) (*Map, error) {
	var (
		tokens  []token
		current []rune
		escape  bool
		quoted  bool
		comment bool
	)

	// finish completes the pending token. An empty pending token is
	// only emitted when forced: a closing quote forces, so "" is a
	// legal empty-string token, while bare whitespace emits nothing.
	finish := func(force bool) {
		if len(current) > 0 || force {
			tokens = append(tokens, token{str: string(current)})
			current = current[:0]
		}
	}

	for {
		c, size, err := s.br.ReadRune()
		if err == io.EOF {
			finish(false)
			if len(tokens)%2 != 0 {
				return nil, &MalformedInputError{Reason: "unexpected EOF: last pair incomplete", Offset: s.off}
			}
			if s.opts.Strict && (escape || quoted || inner) {
				return nil, &MalformedInputError{Reason: "unexpected EOF inside unterminated structure", Offset: s.off}
			}
			return s.build(tokens)
		}
		if err != nil {
			return nil, err
		}
		s.off += int64(size)

		if escape {
			current = append(current, c)
			escape = false
			continue
		}

		if quoted {
			switch c {
			case '\\':
				escape = true
			case '"':
				quoted = false
				finish(true)
			default:
				current = append(current, c)
			}
			continue
		}

		if comment {
			if c == '\n' {
				comment = false
			}
			continue
		}

		switch {
		case c == '\\':
			escape = true

		case c == '{':
			finish(false)
			if len(tokens)%2 == 0 {
				// Key position: a string-keyed Map cannot hold a
				// submap as a key.
				return nil, &MalformedInputError{Reason: "submap cannot be a key", Offset: s.off}
			}
			sub, err := s.parseMap(true)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{sub: sub})

		case c == '}':
			finish(false)
			if len(tokens)%2 != 0 {
				return nil, &MalformedInputError{Reason: "unexpected close: missing last value", Offset: s.off}
			}
			if !inner && s.opts.Strict {
				return nil, &MalformedInputError{Reason: "unbalanced closing brace", Offset: s.off}
			}
			return s.build(tokens)

		case c == ' ' || c == '\t' || c == '\n':
			finish(false)

		case c == '"':
			finish(false)
			quoted = true

		case c == '/' && len(current) > 0 && current[len(current)-1] == '/':
			// Second slash of a line comment: retract the first one
			// already in the pending token.
			current = current[:len(current)-1]
			finish(false)
			comment = true

		default:
			current = append(current, c)
		}
	}
}

func (s *scanner) build(tokens []token) (*Map, error) {
	pairs := make([]Entry, 0, len(tokens)/2)
	for i := 0; i+1 < len(tokens); i += 2 {
		key := tokens[i].str
		val := tokens[i+1]
		if val.sub != nil {
			pairs = append(pairs, Entry{Key: key, Value: FromMap(val.sub)})
		} else {
			pairs = append(pairs, Entry{Key: key, Value: String(val.str)})
		}
	}
	return s.opts.Factory(pairs)
}
