// Package fallback recovers tool calls from markup embedded in generated
// text, for providers or models without native function calling. A streaming
// parser excises matched spans from the visible content and converts them
// into the same tool-call fragments that native adapters emit, so downstream
// consumers see one uniform interface.
package fallback

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/chatwire/chatwire/provider"
)

// Grammar defines the delimiter tokens of the embedded markup. Matching is
// case-sensitive and nesting is not supported.
type Grammar struct {
	Open      string
	Close     string
	NameOpen  string
	NameClose string
	ArgsOpen  string
	ArgsClose string
}

// DefaultGrammar returns the standard grammar:
//
//	<tool_call><name>NAME</name><arguments>{...}</arguments></tool_call>
func DefaultGrammar() Grammar {
	return Grammar{
		Open:      "<tool_call>",
		Close:     "</tool_call>",
		NameOpen:  "<name>",
		NameClose: "</name>",
		ArgsOpen:  "<arguments>",
		ArgsClose: "</arguments>",
	}
}

// Parser scans a visible-content stream for the grammar. Text that could
// still turn into a match is withheld; everything else passes through
// unchanged. One Parser serves one stream.
type Parser struct {
	grammar Grammar
	buf     string
	next    int
}

// NewParser creates a streaming parser for the given grammar.
func NewParser(g Grammar) *Parser {
	return &Parser{grammar: g}
}

// Feed consumes the next content delta and returns the text safe to show
// plus any tool calls completed by this delta. Each completed call arrives
// as a single synthetic fragment with a generated id and the next free
// index.
func (p *Parser) Feed(text string) (visible string, deltas []provider.ToolCallDelta) {
	p.buf += text
	var out strings.Builder

	for {
		i := strings.Index(p.buf, p.grammar.Open)
		if i < 0 {
			// Hold back a tail that is a proper prefix of the open
			// token; everything before it is provably prose.
			keep := boundaryPrefix(p.buf, p.grammar.Open)
			out.WriteString(p.buf[:len(p.buf)-keep])
			p.buf = p.buf[len(p.buf)-keep:]
			return out.String(), deltas
		}

		out.WriteString(p.buf[:i])
		p.buf = p.buf[i:]

		j := strings.Index(p.buf, p.grammar.Close)
		if j < 0 {
			// Inside a potential span; wait for the close token.
			return out.String(), deltas
		}

		span := p.buf[:j+len(p.grammar.Close)]
		p.buf = p.buf[j+len(p.grammar.Close):]

		inner := span[len(p.grammar.Open) : len(span)-len(p.grammar.Close)]
		name, args, ok := p.parseInner(inner)
		if !ok {
			// Not a valid call; the span is ordinary prose.
			out.WriteString(span)
			continue
		}

		deltas = append(deltas, provider.ToolCallDelta{
			Index:          p.next,
			ID:             "call_" + uuid.NewString(),
			Name:           name,
			ArgumentsDelta: args,
		})
		p.next++
	}
}

// Flush releases any withheld text. Call once at end of stream; an
// unterminated span is returned verbatim rather than dropped.
func (p *Parser) Flush() string {
	out := p.buf
	p.buf = ""
	return out
}

// parseInner extracts the tool name and argument JSON from a matched span
// body. Two shapes are accepted: the tagged form
// <name>N</name><arguments>{...}</arguments> and a bare JSON object
// {"function":{"name":N,"arguments":{...}}} as emitted by some models.
// Arguments must parse as a JSON object or the span is rejected.
func (p *Parser) parseInner(inner string) (name, args string, ok bool) {
	inner = strings.TrimSpace(inner)

	if strings.HasPrefix(inner, p.grammar.NameOpen) {
		return p.parseTagged(inner)
	}
	return parseFunctionJSON(inner)
}

func (p *Parser) parseTagged(inner string) (name, args string, ok bool) {
	rest := inner[len(p.grammar.NameOpen):]
	end := strings.Index(rest, p.grammar.NameClose)
	if end < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(rest[:end])
	rest = strings.TrimSpace(rest[end+len(p.grammar.NameClose):])

	if !strings.HasPrefix(rest, p.grammar.ArgsOpen) {
		return "", "", false
	}
	rest = rest[len(p.grammar.ArgsOpen):]
	end = strings.LastIndex(rest, p.grammar.ArgsClose)
	if end < 0 || strings.TrimSpace(rest[end+len(p.grammar.ArgsClose):]) != "" {
		return "", "", false
	}
	args = strings.TrimSpace(rest[:end])

	if name == "" || !validObject(args) {
		return "", "", false
	}
	return name, args, true
}

func parseFunctionJSON(inner string) (name, args string, ok bool) {
	var wrapper struct {
		Function struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal([]byte(inner), &wrapper); err != nil {
		return "", "", false
	}
	if wrapper.Function.Name == "" || !validObject(string(wrapper.Function.Arguments)) {
		return "", "", false
	}
	return wrapper.Function.Name, string(wrapper.Function.Arguments), true
}

// validObject reports whether s parses as a JSON object.
func validObject(s string) bool {
	var m map[string]any
	return json.Unmarshal([]byte(s), &m) == nil
}

// boundaryPrefix returns the length of the longest suffix of s that is a
// proper prefix of token. This bounds the lookahead to one token length.
func boundaryPrefix(s, token string) int {
	max := len(token) - 1
	if max > len(s) {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasPrefix(token, s[len(s)-n:]) {
			return n
		}
	}
	return 0
}
