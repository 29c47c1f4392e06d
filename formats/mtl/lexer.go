package mtl

import (
	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

const (
	TOKEN_NUMBER = iota
	TOKEN_WORD
	TOKEN_NEWLINE
	TOKEN_COMMENT
)

var lexer *lexmachine.Lexer

// patterns are interpreted strings on purpose, lexmachine gets raw tab and
// newline bytes instead of escapes
func init() {
	lexer = lexmachine.NewLexer()
	lexer.Add([]byte(`[\+\-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][\+\-]?[0-9]+)?`), getToken(TOKEN_NUMBER))
	lexer.Add([]byte("[^ \t\r\n#]+"), getToken(TOKEN_WORD))
	lexer.Add([]byte("[\r\n]+"), getToken(TOKEN_NEWLINE))
	lexer.Add([]byte("#[^\r\n]*"), getToken(TOKEN_COMMENT))
	lexer.Add([]byte("[ \t]+"), skip)
	if err := lexer.Compile(); err != nil {
		panic(err)
	}
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

type statement struct {
	line    int
	keyword string
	args    []*lexmachine.Token
}

func (st *statement) strings() []string {
	result := make([]string, len(st.args))
	for i, tok := range st.args {
		result[i] = tok.Value.(string)
	}
	return result
}

// tokenize groups tokens into one statement per non empty line
func tokenize(text []byte) ([]*statement, error) {
	scanner, err := lexer.Scanner(text)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}

	result := make([]*statement, 0, 32)
	var current *statement
	for itok, err, eos := scanner.Next(); !eos; itok, err, eos = scanner.Next() {
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse token")
		}
		tok := itok.(*lexmachine.Token)

		switch tok.Type {
		case TOKEN_NEWLINE:
			current = nil
		case TOKEN_COMMENT:
		default:
			if current == nil {
				current = &statement{line: tok.StartLine, keyword: tok.Value.(string)}
				result = append(result, current)
			} else {
				current.args = append(current.args, tok)
			}
		}
	}
	return result, nil
}
