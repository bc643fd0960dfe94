package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ruslano69/surveydash/pkg/core/schema"
)

// ErrSyntax - выражение фильтра не разбирается
var ErrSyntax = errors.New("invalid filter expression")

// ParseWhere разбирает выражение фильтра в набор ограничений.
//
// Поддерживаемая форма - конъюнкция условий:
//
//	Company = 'Talabat' AND "Age (Years)" IN (25, 30) AND [City] IS NULL
//
// Имена вопросов с пробелами берутся в "..." или [...]. IS NULL означает
// пустой ответ. OR между вопросами не поддерживается: варианты одного
// вопроса перечисляются через IN. Пустое выражение дает пустой набор.
// Ошибки оборачивают ErrSyntax.
func ParseWhere(expr string) (FilterSet, error) {
	fs, err := parseWhere(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	return fs, nil
}

func parseWhere(expr string) (FilterSet, error) {
	p := &whereParser{lex: newLexer(expr)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	fs := FilterSet{}
	if p.cur.typ == tokenEOF {
		return fs, nil
	}

	for {
		question, values, err := p.condition()
		if err != nil {
			return nil, err
		}
		if _, dup := fs[question]; dup {
			return nil, fmt.Errorf("question %q constrained twice; list its values with IN", question)
		}
		fs[question] = values

		switch p.cur.typ {
		case tokenEOF:
			return fs, nil
		case tokenAnd:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokenOr:
			return nil, fmt.Errorf("OR is not supported at %d: conditions on different questions are combined with AND", p.cur.pos)
		default:
			return nil, fmt.Errorf("expected AND, got %s", p.cur)
		}
	}
}

// whereParser рекурсивный разбор выражения WHERE
type whereParser struct {
	lex *lexer
	cur token
}

func (p *whereParser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	if tok.typ == tokenIllegal {
		return fmt.Errorf("unexpected character %s", tok)
	}
	p.cur = tok
	return nil
}

func (p *whereParser) expect(typ tokenType, what string) (token, error) {
	tok := p.cur
	if tok.typ != typ {
		return tok, fmt.Errorf("expected %s, got %s", what, tok)
	}
	return tok, p.advance()
}

// condition: question ('=' value | IN '(' value {',' value} ')' | IS NULL)
func (p *whereParser) condition() (string, []string, error) {
	var question string
	switch p.cur.typ {
	case tokenIdent, tokenQuoted:
		question = strings.TrimSpace(p.cur.literal)
	default:
		return "", nil, fmt.Errorf("expected question name, got %s", p.cur)
	}
	if question == "" {
		return "", nil, fmt.Errorf("empty question name at %d", p.cur.pos)
	}
	if err := p.advance(); err != nil {
		return "", nil, err
	}

	switch p.cur.typ {
	case tokenEq:
		if err := p.advance(); err != nil {
			return "", nil, err
		}
		v, err := p.value()
		if err != nil {
			return "", nil, err
		}
		return question, []string{v}, nil

	case tokenIn:
		if err := p.advance(); err != nil {
			return "", nil, err
		}
		if _, err := p.expect(tokenLParen, "("); err != nil {
			return "", nil, err
		}
		var values []string
		for {
			v, err := p.value()
			if err != nil {
				return "", nil, err
			}
			values = append(values, v)
			if p.cur.typ == tokenComma {
				if err := p.advance(); err != nil {
					return "", nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(tokenRParen, ")"); err != nil {
			return "", nil, err
		}
		return question, values, nil

	case tokenIs:
		if err := p.advance(); err != nil {
			return "", nil, err
		}
		if _, err := p.expect(tokenNull, "NULL"); err != nil {
			return "", nil, err
		}
		return question, []string{schema.Unanswered}, nil
	}

	return "", nil, fmt.Errorf("expected =, IN or IS NULL after %q, got %s", question, p.cur)
}

func (p *whereParser) value() (string, error) {
	switch p.cur.typ {
	case tokenString, tokenNumber:
		v := p.cur.literal
		return v, p.advance()
	case tokenNull:
		return schema.Unanswered, p.advance()
	}
	return "", fmt.Errorf("expected quoted value or number, got %s", p.cur)
}

// Where форматирует набор обратно в выражение, понятное ParseWhere
func (fs FilterSet) Where() string {
	var conds []string
	for _, q := range fs.Questions() {
		values := fs[q]
		if len(values) == 0 {
			continue
		}
		name := `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
		quoted := make([]string, len(values))
		for i, v := range values {
			if v == schema.Unanswered {
				quoted[i] = "NULL"
				continue
			}
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		if len(quoted) == 1 {
			conds = append(conds, name+" = "+quoted[0])
		} else {
			conds = append(conds, name+" IN ("+strings.Join(quoted, ", ")+")")
		}
	}
	return strings.Join(conds, " AND ")
}

// Combine объединяет набор ограничений с выражением фильтра.
// Вопрос, ограниченный и там и там, дает ErrSyntax.
func Combine(fs FilterSet, where string) (FilterSet, error) {
	out := fs.Normalize()
	if strings.TrimSpace(where) == "" {
		return out, nil
	}

	parsed, err := ParseWhere(where)
	if err != nil {
		return nil, err
	}
	for q, values := range parsed.Normalize() {
		if _, dup := out[q]; dup {
			return nil, fmt.Errorf("%w: question %q is constrained twice", ErrSyntax, q)
		}
		out[q] = values
	}
	return out, nil
}
