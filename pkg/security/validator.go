package security

import (
	"fmt"
	"strings"
	"unicode"
)

// errPrefix префикс ошибок проверки запроса
const errPrefix = "dataset query rejected"

// forbiddenKeywords - операции, недопустимые в запросе источника данных
var forbiddenKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "TRUNCATE": true, "MERGE": true, "UPSERT": true,
	"DROP": true, "CREATE": true, "ALTER": true, "RENAME": true,
	"GRANT": true, "REVOKE": true,
	"EXECUTE": true, "EXEC": true, "CALL": true,
	"PRAGMA": true, "ATTACH": true, "DETACH": true, "VACUUM": true,
	"BEGIN": true, "COMMIT": true, "ROLLBACK": true, "SAVEPOINT": true,
	"COPY": true, "LOAD": true, "INTO": true,
}

// SQLValidator проверяет запрос, которым дашборд читает опрос из базы.
//
// В safe mode (по умолчанию) допускается ровно один SELECT или WITH без
// изменяющих операций и комментариев. Unsafe mode пропускает все запросы.
type SQLValidator struct {
	safeMode bool
}

// NewSQLValidator создает валидатор
func NewSQLValidator(safeMode bool) *SQLValidator {
	return &SQLValidator{safeMode: safeMode}
}

// Validate проверяет запрос. Ключевые слова ищутся как отдельные слова вне
// строковых литералов, поэтому колонки вида deleted_at и значения 'DROP'
// не считаются нарушением.
func (v *SQLValidator) Validate(query string) error {
	if !v.safeMode {
		return nil
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("%s: empty query", errPrefix)
	}

	if err := checkComments(trimmed); err != nil {
		return err
	}

	words, semicolons, err := scan(trimmed)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("%s: no statement", errPrefix)
	}

	first := words[0]
	if first != "SELECT" && first != "WITH" {
		return fmt.Errorf("%s: only SELECT and WITH queries allowed, got %s", errPrefix, first)
	}

	for _, w := range words {
		if forbiddenKeywords[w] {
			return fmt.Errorf("%s: forbidden keyword '%s'", errPrefix, w)
		}
	}

	switch {
	case semicolons > 1:
		return fmt.Errorf("%s: multiple statements not allowed", errPrefix)
	case semicolons == 1 && !strings.HasSuffix(trimmed, ";"):
		return fmt.Errorf("%s: semicolon allowed only at the end of query", errPrefix)
	}

	return nil
}

// scan выделяет слова (в верхнем регистре) вне строковых литералов и
// квотированных идентификаторов и считает точки с запятой
func scan(query string) ([]string, int, error) {
	var (
		words      []string
		word       strings.Builder
		semicolons int
		quote      rune
	)

	flush := func() {
		if word.Len() > 0 {
			words = append(words, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	for _, r := range query {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}

		switch {
		case r == '\'' || r == '"' || r == '`':
			flush()
			quote = r
		case r == '[':
			flush()
			quote = ']'
		case r == ';':
			flush()
			semicolons++
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	if quote != 0 {
		return nil, 0, fmt.Errorf("%s: unterminated quote", errPrefix)
	}
	return words, semicolons, nil
}

// checkComments запрещает комментарии: они могут скрыть вторую команду
func checkComments(query string) error {
	if strings.Contains(query, "--") {
		return fmt.Errorf("%s: SQL comments (--) not allowed", errPrefix)
	}
	if strings.Contains(query, "/*") || strings.Contains(query, "*/") {
		return fmt.Errorf("%s: SQL comments (/* */) not allowed", errPrefix)
	}
	return nil
}

// IsSafeMode возвращает текущий режим валидатора
func (v *SQLValidator) IsSafeMode() bool {
	return v.safeMode
}
