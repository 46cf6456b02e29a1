package challenge

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
)

// Puzzle is a generated question and its rendered image.
type Puzzle struct {
	Kind   Kind
	Answer string
	Image  []byte
}

// Generator produces puzzles. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context) (Puzzle, error)
}

// Renderer turns text into PNG bytes.
type Renderer interface {
	Render(ctx context.Context, text string) ([]byte, error)
}

// Rand is the subset of math/rand/v2 the generators use.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// LockedRand makes a *rand.Rand safe for concurrent use. Tests use it to get
// a reproducible sequence.
type LockedRand struct {
	lock sync.Mutex
	r    *rand.Rand
}

func NewLockedRand(src rand.Source) *LockedRand {
	return &LockedRand{r: rand.New(src)}
}

func (l *LockedRand) IntN(n int) int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.r.IntN(n)
}

func orGlobal(r Rand) Rand {
	if r == nil {
		return globalRand{}
	}
	return r
}

// TextAlphabet is the set of characters text puzzles are drawn from.
const TextAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Text generates 5 or 6 character alphanumeric puzzles and draws them with a
// CAPTCHA renderer.
type Text struct {
	Renderer Renderer
	Rand     Rand
}

func (t *Text) Generate(ctx context.Context) (Puzzle, error) {
	rnd := orGlobal(t.Rand)

	var sb strings.Builder
	length := 5 + rnd.IntN(2)
	for range length {
		sb.WriteByte(TextAlphabet[rnd.IntN(len(TextAlphabet))])
	}
	text := sb.String()

	img, err := t.Renderer.Render(ctx, text)
	if err != nil {
		return Puzzle{}, fmt.Errorf("render text puzzle: %w", err)
	}

	return Puzzle{Kind: KindText, Answer: text, Image: img}, nil
}

// Term is one "operator operand" step of an Expression.
type Term struct {
	Op      byte
	Operand int
}

// Expression is an arithmetic puzzle. It is evaluated strictly left to right
// with no operator precedence: 9 + 4 * 2 is (9 + 4) * 2 = 26.
type Expression struct {
	First int
	Terms []Term
}

// Fold evaluates the expression term by term.
func (e Expression) Fold() int {
	acc := e.First
	for _, t := range e.Terms {
		switch t.Op {
		case '+':
			acc += t.Operand
		case '-':
			acc -= t.Operand
		case '*':
			acc *= t.Operand
		}
	}
	return acc
}

func (e Expression) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(e.First))
	for _, t := range e.Terms {
		sb.WriteByte(' ')
		sb.WriteByte(t.Op)
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(t.Operand))
	}
	return sb.String()
}

const (
	mathOperators  = "+-*"
	mathOperandMin = 2
	mathOperandMax = 15
)

// Math generates arithmetic puzzles with two or three operands and renders
// the expression as plain text.
type Math struct {
	Renderer Renderer
	Rand     Rand
}

func operand(rnd Rand) int {
	return mathOperandMin + rnd.IntN(mathOperandMax-mathOperandMin+1)
}

// NewExpression draws a random expression from rnd.
func NewExpression(rnd Rand) Expression {
	rnd = orGlobal(rnd)

	e := Expression{First: operand(rnd)}
	extra := 1 + rnd.IntN(2)
	for range extra {
		op := mathOperators[rnd.IntN(len(mathOperators))]
		e.Terms = append(e.Terms, Term{Op: op, Operand: operand(rnd)})
	}

	return e
}

func (m *Math) Generate(ctx context.Context) (Puzzle, error) {
	e := NewExpression(m.Rand)

	img, err := m.Renderer.Render(ctx, e.String())
	if err != nil {
		return Puzzle{}, fmt.Errorf("render math puzzle %q: %w", e, err)
	}

	return Puzzle{Kind: KindMath, Answer: strconv.Itoa(e.Fold()), Image: img}, nil
}

// Mixed picks one of its generators uniformly at random for every puzzle.
type Mixed struct {
	Generators []Generator
	Rand       Rand
}

func (m *Mixed) Generate(ctx context.Context) (Puzzle, error) {
	if len(m.Generators) == 0 {
		return Puzzle{}, fmt.Errorf("no puzzle generators configured")
	}

	g := m.Generators[orGlobal(m.Rand).IntN(len(m.Generators))]
	return g.Generate(ctx)
}

// NewGenerator returns the default generator: text and math puzzles with
// equal probability, text drawn by captcha and expressions drawn by plain.
func NewGenerator(captcha, plain Renderer) Generator {
	return &Mixed{
		Generators: []Generator{
			&Text{Renderer: captcha},
			&Math{Renderer: plain},
		},
	}
}
