package dsl

import (
	"fmt"
	"io"
	"strings"

	"github.com/petereon/pedaler-core/pkg/perr"
)

// Parser turns a token stream from a Lexer into an Ast.
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a parser reading from the given lexer.
func NewParser(lexer *Lexer) (*Parser, error) {
	p := &Parser{lexer: lexer}
	tok, err := lexer.NextToken()
	if err != nil {
		return nil, err
	}
	p.current = tok
	return p, nil
}

// Parse reads an io.Reader in full and parses it as a circuit description.
func Parse(r io.Reader) (*Ast, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(data))
}

// ParseString parses a circuit description already held in memory.
func ParseString(input string) (*Ast, error) {
	p, err := NewParser(NewLexer(input))
	if err != nil {
		return nil, err
	}
	return p.parseAst()
}

func (p *Parser) advance() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	if p.current.Kind != kind {
		return Token{}, &perr.ParseError{Line: p.current.Line, Message: fmt.Sprintf("expected token kind %d, got %d (%q)", kind, p.current.Kind, p.current.Text)}
	}
	tok := p.current
	return tok, p.advance()
}

func (p *Parser) parseAst() (*Ast, error) {
	ast := newAst()
	seen := map[string]bool{"0": true, "GND": true}
	var order []string

	for p.current.Kind != TokenEOF {
		if p.current.Kind == TokenNewline {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}

		switch p.current.Kind {
		case TokenDirective:
			if err := p.parseDirective(ast); err != nil {
				return nil, err
			}
		case TokenIdentifier:
			comp, err := p.parseComponent()
			if err != nil {
				return nil, err
			}
			for _, n := range comp.Nodes {
				if !seen[n] {
					seen[n] = true
					order = append(order, n)
				}
			}
			ast.Components = append(ast.Components, comp)
		default:
			return nil, &perr.ParseError{Line: p.current.Line, Message: fmt.Sprintf("unexpected token: %q", p.current.Text)}
		}

		if p.current.Kind == TokenNewline {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}

	for _, n := range ast.Nodes {
		if !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}
	ast.Nodes = order

	return ast, nil
}

func (p *Parser) parseDirective(ast *Ast) error {
	directive := strings.ToLower(p.current.Text)
	line := p.current.Line
	if err := p.advance(); err != nil {
		return err
	}

	switch directive {
	case ".input":
		tok, err := p.expect(TokenIdentifier)
		if err != nil {
			return err
		}
		ast.InputNode = tok.Text

	case ".output":
		tok, err := p.expect(TokenIdentifier)
		if err != nil {
			return err
		}
		ast.OutputNode = tok.Text

	case ".node":
		tok, err := p.expect(TokenIdentifier)
		if err != nil {
			return err
		}
		found := false
		for _, n := range ast.Nodes {
			if n == tok.Text {
				found = true
				break
			}
		}
		if !found {
			ast.Nodes = append(ast.Nodes, tok.Text)
		}

	case ".model":
		model, err := p.parseModelDef(line)
		if err != nil {
			return err
		}
		if _, dup := ast.Models[model.Name]; dup {
			return &perr.DuplicateModelError{Name: model.Name}
		}
		ast.Models[model.Name] = model

	default:
		return &perr.ParseError{Line: line, Message: fmt.Sprintf("unknown directive: %s", directive)}
	}

	return nil
}

func (p *Parser) parseModelDef(line int) (ModelDef, error) {
	nameTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return ModelDef{}, err
	}
	typeTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return ModelDef{}, err
	}

	modelType, ok := ModelTypeFromString(typeTok.Text)
	if !ok {
		return ModelDef{}, &perr.ParseError{Line: line, Message: fmt.Sprintf("unknown model type: %s", typeTok.Text)}
	}

	params := make(map[string]float64)

	if p.current.Kind == TokenOpenParen {
		if err := p.advance(); err != nil {
			return ModelDef{}, err
		}

		for p.current.Kind != TokenCloseParen && p.current.Kind != TokenEOF && p.current.Kind != TokenNewline {
			paramName, err := p.expect(TokenIdentifier)
			if err != nil {
				return ModelDef{}, err
			}
			if _, err := p.expect(TokenEquals); err != nil {
				return ModelDef{}, err
			}

			if p.current.Kind != TokenNumber && p.current.Kind != TokenIdentifier {
				return ModelDef{}, &perr.ParseError{Line: line, Message: "expected parameter value"}
			}
			text := p.current.Text
			if err := p.advance(); err != nil {
				return ModelDef{}, err
			}
			v, ok := ParseValue(text)
			if !ok {
				return ModelDef{}, &perr.ParseError{Line: line, Message: fmt.Sprintf("invalid number: %s", text)}
			}
			params[strings.ToLower(paramName.Text)] = v
		}

		if p.current.Kind == TokenCloseParen {
			if err := p.advance(); err != nil {
				return ModelDef{}, err
			}
		}
	}

	return ModelDef{Name: nameTok.Text, Type: modelType, Params: params, Line: line}, nil
}

func (p *Parser) parseComponent() (ComponentDef, error) {
	firstToken := p.current.Text
	line := p.current.Line
	if err := p.advance(); err != nil {
		return ComponentDef{}, err
	}

	componentType, name, err := p.resolveComponentType(firstToken, line)
	if err != nil {
		return ComponentDef{}, err
	}

	expectedNodes := componentType.ExpectedNodeCount()
	nodes := make([]string, 0, expectedNodes)
	var value *float64
	var modelRef string
	var modulation *ModulationRef
	params := make(map[string]float64)

	for p.current.Kind != TokenNewline && p.current.Kind != TokenEOF {
		switch p.current.Kind {
		case TokenIdentifier:
			text := p.current.Text
			if err := p.advance(); err != nil {
				return ComponentDef{}, err
			}

			if p.current.Kind == TokenEquals {
				if err := p.advance(); err != nil {
					return ComponentDef{}, err
				}
				lower := strings.ToLower(text)
				if lower == "mod" || lower == "lfo" {
					// The LFO reference is a component name, not a number.
					if p.current.Kind != TokenIdentifier {
						return ComponentDef{}, &perr.ParseError{Line: line, Message: "expected LFO name"}
					}
					modulation = &ModulationRef{LfoName: p.current.Text}
					if err := p.advance(); err != nil {
						return ComponentDef{}, err
					}
					continue
				}
				if p.current.Kind == TokenNumber || p.current.Kind == TokenIdentifier {
					valText := p.current.Text
					if err := p.advance(); err != nil {
						return ComponentDef{}, err
					}
					if v, ok := ParseValue(valText); ok {
						params[lower] = v
					}
				}
				continue
			}

			if len(nodes) >= expectedNodes {
				if v, ok := ParseValue(text); ok {
					value = &v
				} else {
					modelRef = text
				}
				continue
			}

			switch {
			case text == "DC" || text == "AC":
				params[strings.ToLower(text)] = 1.0
				if p.current.Kind == TokenNumber || p.current.Kind == TokenIdentifier {
					valText := p.current.Text
					if err := p.advance(); err != nil {
						return ComponentDef{}, err
					}
					if v, ok := ParseValue(valText); ok {
						value = &v
					}
				}
			case text == "0" || strings.ToUpper(text) == "GND":
				nodes = append(nodes, "0")
			default:
				nodes = append(nodes, text)
			}

		case TokenNumber:
			text := p.current.Text
			if err := p.advance(); err != nil {
				return ComponentDef{}, err
			}
			if text == "0" && len(nodes) < expectedNodes {
				nodes = append(nodes, "0")
			} else if v, ok := ParseValue(text); ok {
				if value == nil {
					value = &v
				} else {
					params["position"] = v
				}
			}

		default:
			goto done
		}
	}
done:

	if len(nodes) < expectedNodes {
		return ComponentDef{}, &perr.InvalidComponentError{Name: name, Line: line, Message: fmt.Sprintf("expected %d nodes, got %d", expectedNodes, len(nodes))}
	}

	return ComponentDef{
		Type:       componentType,
		Name:       name,
		Nodes:      nodes,
		Value:      value,
		ModelRef:   modelRef,
		Modulation: modulation,
		Params:     params,
		Line:       line,
	}, nil
}

// resolveComponentType disambiguates a leading token into a ComponentType
// and the component's actual name. Keyword types must be checked before
// the single-character prefix, or REVERB would be mistaken for a
// Resistor, DELAY for a Diode, and so on.
func (p *Parser) resolveComponentType(firstToken string, line int) (ComponentType, string, error) {
	if ct, ok := ComponentTypeFromKeyword(firstToken); ok {
		nameTok, err := p.expect(TokenIdentifier)
		if err != nil {
			return 0, "", err
		}
		return ct, nameTok.Text, nil
	}

	upper := strings.ToUpper(firstToken)
	switch {
	case strings.HasPrefix(upper, "OP"):
		return OpAmp, firstToken, nil
	case strings.HasPrefix(upper, "POT"):
		return Potentiometer, firstToken, nil
	case strings.HasPrefix(upper, "SW"):
		return Switch, firstToken, nil
	case strings.HasPrefix(upper, "DELAY"):
		nameTok, err := p.expect(TokenIdentifier)
		if err != nil {
			return 0, "", err
		}
		return Delay, nameTok.Text, nil
	case strings.HasPrefix(upper, "REVERB") || strings.HasPrefix(upper, "REV"):
		nameTok, err := p.expect(TokenIdentifier)
		if err != nil {
			return 0, "", err
		}
		return Reverb, nameTok.Text, nil
	}

	if len(firstToken) == 0 {
		return 0, "", &perr.UnknownComponentTypeError{ComponentType: firstToken, Line: line}
	}
	ct, ok := ComponentTypeFromPrefix(firstToken[0])
	if !ok {
		return 0, "", &perr.UnknownComponentTypeError{ComponentType: firstToken, Line: line}
	}
	return ct, firstToken, nil
}
