package lexer

import (
	"testing"

	"github.com/gurre/dimcalc/internal/token"
)

func kinds(t *testing.T, input string) []token.Kind {
	t.Helper()
	l, err := New(input)
	if err != nil {
		t.Fatalf("New(%q) = %v", input, err)
	}
	var out []token.Kind
	for {
		tok := l.Next()
		out = append(out, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}
	return out
}

func assertKinds(t *testing.T, input string, want ...token.Kind) {
	t.Helper()
	want = append(want, token.EOF)
	got := kinds(t, input)
	if len(got) != len(want) {
		t.Fatalf("%q: got %v, want %v", input, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("%q: token %d = %v, want %v", input, i, got[i], want[i])
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	assertKinds(t, "let x = 2", token.KwLet, token.Identifier, token.Equal, token.Number)
}

func TestOperators(t *testing.T) {
	assertKinds(t, "a -> b", token.Identifier, token.Arrow, token.Identifier)
	assertKinds(t, "a <= b >= c == d != e", token.Identifier, token.LessEq, token.Identifier,
		token.GreaterEq, token.Identifier, token.EqEq, token.Identifier, token.NotEq, token.Identifier)
}

func TestNumbersWithExponent(t *testing.T) {
	assertKinds(t, "1.5e-3", token.Number)
	l, err := New("1.5e-3")
	if err != nil {
		t.Fatal(err)
	}
	tok := l.Next()
	if tok.Value != "1.5e-3" {
		t.Errorf("value = %q, want 1.5e-3", tok.Value)
	}
}

func TestStringLiteral(t *testing.T) {
	l, err := New(`print("hello world")`)
	if err != nil {
		t.Fatal(err)
	}
	_ = l.Next() // print
	_ = l.Next() // (
	tok := l.Next()
	if tok.Kind != token.String || tok.Value != "hello world" {
		t.Errorf("got %v, want String(hello world)", tok)
	}
}

func TestLineComment(t *testing.T) {
	assertKinds(t, "1 + 1 # a comment\n2", token.Number, token.Plus, token.Number, token.Number)
}

func TestUnterminatedStringError(t *testing.T) {
	if _, err := New(`"abc`); err == nil {
		t.Fatal("expected unterminated string error")
	}
}

func TestInvalidCharacterError(t *testing.T) {
	if _, err := New("1 @ 2"); err == nil {
		t.Fatal("expected invalid character error")
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	l, err := New("a b")
	if err != nil {
		t.Fatal(err)
	}
	first := l.Peek()
	second := l.Peek()
	if first != second {
		t.Errorf("Peek not idempotent: %v != %v", first, second)
	}
	if l.Next().Value != "a" {
		t.Error("expected a")
	}
	if l.Next().Value != "b" {
		t.Error("expected b")
	}
}
