package wikidump

import (
	"bufio"
	"errors"
	"io"
	"unicode"

	"github.com/hut8/wikiwalk/internal/wikierr"
)

// SQLReader parses MediaWiki SQL dump files: a single `CREATE TABLE`
// statement (used only to recover column order) followed by one or more
// `INSERT INTO ... VALUES (...),(...),...;` statements. Grounded on
// brawer/wikidata-qrank's cmd/qrank-builder/sqlreader.go.
type SQLReader struct {
	lex     sqlLexer
	table   string
	columns []string
	offset  int64
}

var errParse = errors.New("sql parse error")

// NewSQLReader opens a reader positioned after the `VALUES` keyword of the
// dump's first INSERT statement, having recovered the column list from
// the preceding CREATE TABLE. Later INSERT statements are reached with
// NextInsert.
func NewSQLReader(r io.Reader) (*SQLReader, error) {
	rd := &SQLReader{
		lex:     sqlLexer{r: bufio.NewReaderSize(r, 1<<16)},
		columns: make([]string, 0, 16),
	}
	if err := rd.skipUntil(tokWord, "CREATE"); err != nil {
		return nil, rd.wrap("CREATE", err)
	}
	if err := rd.parseCreate(); err != nil {
		return nil, rd.wrap("CREATE", err)
	}
	if err := rd.skipUntil(tokWord, "INSERT"); err != nil {
		return nil, rd.wrap(rd.table, err)
	}
	if err := rd.skipUntil(tokWord, "VALUES"); err != nil {
		return nil, rd.wrap(rd.table, err)
	}
	return rd, nil
}

// Columns returns the column names in declaration order, as recovered
// from the CREATE TABLE statement.
func (r *SQLReader) Columns() []string { return r.columns }

// Row reads the next `(...)` tuple and returns its fields as raw strings
// (NULL becomes ""). Returns (nil, nil) at the terminating semicolon and
// io.EOF once the stream is exhausted.
func (r *SQLReader) Row() ([]string, error) {
	tok, _, err := r.token()
	if err != nil {
		return nil, r.wrap(r.table, err)
	}
	if tok == tokSemicolon {
		return nil, nil
	}
	if tok == tokComma {
		tok, _, err = r.token()
		if err != nil {
			return nil, r.wrap(r.table, err)
		}
	}
	if tok != tokLeftParen {
		return nil, r.wrap(r.table, errParse)
	}

	row := make([]string, 0, len(r.columns))
	for {
		tok, txt, err := r.token()
		if err != nil {
			return nil, r.wrap(r.table, err)
		}
		switch {
		case tok == tokNumber || tok == tokText:
			row = append(row, txt)
		case tok == tokWord && txt == "NULL":
			row = append(row, "")
		default:
			return nil, r.wrap(r.table, errParse)
		}

		tok, _, err = r.token()
		if err != nil {
			return nil, r.wrap(r.table, err)
		}
		if tok == tokComma {
			continue
		}
		if tok == tokRightParen {
			return row, nil
		}
		return nil, r.wrap(r.table, errParse)
	}
}

// NextInsert skips forward to the next `INSERT INTO ... VALUES` statement,
// for dump files that emit their rows across multiple INSERT statements.
// Returns io.EOF if the stream ends first.
func (r *SQLReader) NextInsert() error {
	if err := r.skipUntil(tokWord, "INSERT"); err != nil {
		return err
	}
	return r.skipUntil(tokWord, "VALUES")
}

func (r *SQLReader) wrap(table string, err error) error {
	if err == io.EOF {
		return io.EOF
	}
	return &wikierr.MalformedDumpError{Table: table, Offset: r.offset, Cause: err}
}

func (r *SQLReader) parseCreate() error {
	// `CREATE TABLE `name` (`
	tok, txt, err := r.token()
	if err != nil {
		return err
	}
	if tok == tokWord && txt == "TABLE" {
		tok, txt, err = r.token()
		if err != nil {
			return err
		}
	}
	if tok == tokName {
		r.table = txt
	}
	if err := r.skipUntil(tokLeftParen, ""); err != nil {
		return err
	}
	for {
		tok, txt, err := r.token()
		if err != nil {
			return err
		}
		if tok != tokName {
			return r.skipUntil(tokSemicolon, "")
		}
		r.columns = append(r.columns, txt)
		if err := r.skipUntilEither(tokComma, tokRightParen); err != nil {
			return err
		}
	}
}

func (r *SQLReader) skipUntil(want sqlToken, wantText string) error {
	for {
		tok, txt, err := r.lex.read()
		r.offset += int64(len(txt)) + 1
		if err != nil {
			return err
		}
		if tok == want && (wantText == "" || txt == wantText) {
			return nil
		}
	}
}

func (r *SQLReader) skipUntilEither(a, b sqlToken) error {
	depth := 0
	for {
		tok, _, err := r.token()
		if err != nil {
			return err
		}
		if tok == tokLeftParen {
			depth++
			continue
		}
		if tok == tokRightParen && depth > 0 {
			depth--
			continue
		}
		if tok == a || tok == b {
			return nil
		}
	}
}

// token reads the next non-comment token, tracking approximate byte
// offset for error reporting.
func (r *SQLReader) token() (sqlToken, string, error) {
	for {
		tok, txt, err := r.lex.read()
		r.offset += int64(len(txt)) + 1
		if err != nil {
			return tokUnexpected, "", err
		}
		if tok == tokComment {
			continue
		}
		return tok, txt, nil
	}
}

type sqlToken int

const (
	tokUnexpected sqlToken = iota
	tokWord                // bare keyword/identifier without backticks
	tokName                // `quoted identifier`
	tokNumber
	tokText // 'quoted string'
	tokComment
	tokLeftParen
	tokRightParen
	tokComma
	tokSemicolon
)

type sqlLexer struct {
	r *bufio.Reader
}

func (lex *sqlLexer) read() (sqlToken, string, error) {
	var c rune
	var err error
	for {
		c, _, err = lex.r.ReadRune()
		if err != nil || !unicode.IsSpace(c) {
			break
		}
	}
	if err != nil {
		return tokUnexpected, "", err
	}

	switch c {
	case '`':
		text, err := lex.readUntil('`')
		return tokName, text, err
	case '\'':
		text, err := lex.readQuotedString()
		return tokText, text, err
	case '-':
		next, _, err := lex.r.ReadRune()
		if err == nil && next == '-' {
			text, err := lex.readUntil('\n')
			return tokComment, text, err
		}
		if err == nil {
			lex.r.UnreadRune()
		}
		return lex.readNumber(c)
	case '/':
		next, _, err := lex.r.ReadRune()
		if err == nil && next == '*' {
			return lex.readBlockComment()
		}
		if err == nil {
			lex.r.UnreadRune()
		}
		return tokUnexpected, "/", nil
	case '(':
		return tokLeftParen, "(", nil
	case ')':
		return tokRightParen, ")", nil
	case ',':
		return tokComma, ",", nil
	case ';':
		return tokSemicolon, ";", nil
	}
	if isWordStart(c) {
		return lex.readWord(c)
	}
	if isDigit(c) {
		return lex.readNumber(c)
	}
	return tokUnexpected, string(c), nil
}

// readQuotedString reads a MySQL-escaped single-quoted string, resolving
// doubled quotes ('') and backslash escapes as MediaWiki dumps emit them,
// including raw bytes for varbinary/blob title columns.
func (lex *sqlLexer) readQuotedString() (string, error) {
	var buf []byte
	for {
		b, err := lex.r.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '\\':
			esc, err := lex.r.ReadByte()
			if err != nil {
				return "", err
			}
			switch esc {
			case 'n':
				buf = append(buf, '\n')
			case 't':
				buf = append(buf, '\t')
			case 'r':
				buf = append(buf, '\r')
			case '0':
				buf = append(buf, 0)
			default:
				buf = append(buf, esc)
			}
		case '\'':
			next, err := lex.r.Peek(1)
			if err == nil && len(next) == 1 && next[0] == '\'' {
				lex.r.ReadByte()
				buf = append(buf, '\'')
				continue
			}
			return string(buf), nil
		default:
			buf = append(buf, b)
		}
	}
}

func (lex *sqlLexer) readWord(start rune) (sqlToken, string, error) {
	var buf []rune
	buf = append(buf, start)
	for {
		c, _, err := lex.r.ReadRune()
		if err == io.EOF {
			break
		} else if err != nil {
			return tokUnexpected, "", err
		}
		if isWordChar(c) {
			buf = append(buf, c)
			continue
		}
		lex.r.UnreadRune()
		break
	}
	return tokWord, string(buf), nil
}

func (lex *sqlLexer) readNumber(start rune) (sqlToken, string, error) {
	buf := []rune{start}
	for {
		c, _, err := lex.r.ReadRune()
		if err == io.EOF {
			break
		} else if err != nil {
			return tokUnexpected, "", err
		}
		if isDigit(c) || c == '.' {
			buf = append(buf, c)
			continue
		}
		lex.r.UnreadRune()
		break
	}
	return tokNumber, string(buf), nil
}

func (lex *sqlLexer) readUntil(delim rune) (string, error) {
	var buf []rune
	for {
		c, _, err := lex.r.ReadRune()
		if c == delim || err == io.EOF {
			break
		} else if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	return string(buf), nil
}

func (lex *sqlLexer) readBlockComment() (sqlToken, string, error) {
	var buf []rune
	var last rune
	for {
		c, _, err := lex.r.ReadRune()
		if err == io.EOF {
			break
		} else if err != nil {
			return tokUnexpected, "", err
		}
		if c == '/' && last == '*' {
			break
		}
		buf = append(buf, c)
		last = c
	}
	return tokComment, string(buf), nil
}

func isWordStart(c rune) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_' }
func isWordChar(c rune) bool  { return isWordStart(c) || isDigit(c) }
func isDigit(c rune) bool     { return c >= '0' && c <= '9' }
