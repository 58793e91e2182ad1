package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRetriever struct {
	context string
	err     error
}

func (f *fakeRetriever) RetrieveContext(_ context.Context, _ string, _ int) (string, error) {
	return f.context, f.err
}

type fakeGenerator struct {
	reply string
	err   error

	lastPrompt string
}

func (f *fakeGenerator) GenerateResponse(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

func TestOracleAnswersWithContext(t *testing.T) {
	gen := &fakeGenerator{reply: "Fuerza Popular propone X."}
	oracle := NewOracle(&fakeRetriever{context: "[PARTIDO: Fuerza Popular]\nTEXTO: propone X"}, gen, 5)

	got := oracle.Answer(context.Background(), "¿qué propone fuerza popular?")
	if got != "Fuerza Popular propone X." {
		t.Errorf("unexpected answer: %q", got)
	}
	if !strings.Contains(gen.lastPrompt, "[PARTIDO: Fuerza Popular]") {
		t.Errorf("prompt missing retrieved context: %q", gen.lastPrompt)
	}
	if !strings.Contains(gen.lastPrompt, "¿qué propone fuerza popular?") {
		t.Errorf("prompt missing question: %q", gen.lastPrompt)
	}
}

func TestOracleEmptyContextMeansNoInformation(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be called"}
	oracle := NewOracle(&fakeRetriever{context: ""}, gen, 5)

	got := oracle.Answer(context.Background(), "¿algo?")
	if got != NoContextMessage {
		t.Errorf("expected no-context message, got %q", got)
	}
	if gen.lastPrompt != "" {
		t.Error("generator must not run without context")
	}
}

func TestOracleRetrievalFailureFallsBack(t *testing.T) {
	oracle := NewOracle(&fakeRetriever{err: errors.New("embed failed")}, &fakeGenerator{}, 5)
	if got := oracle.Answer(context.Background(), "¿algo?"); got != FallbackMessage {
		t.Errorf("expected fallback message, got %q", got)
	}
}

func TestOracleGenerationFailureFallsBack(t *testing.T) {
	oracle := NewOracle(
		&fakeRetriever{context: "[PARTIDO: X]\nTEXTO: y"},
		&fakeGenerator{err: errors.New("model offline")}, 5)
	if got := oracle.Answer(context.Background(), "¿algo?"); got != FallbackMessage {
		t.Errorf("expected fallback message, got %q", got)
	}
}
