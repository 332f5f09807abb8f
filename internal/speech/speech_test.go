package speech

import (
	"context"
	"testing"
)

func TestNewCommandEngineParsesCommandLine(t *testing.T) {
	engine := NewCommandEngine("espeak-ng -s 140", nil)
	if engine.command != "espeak-ng" {
		t.Fatalf("expected command espeak-ng, got %q", engine.command)
	}
	if len(engine.args) != 2 || engine.args[0] != "-s" || engine.args[1] != "140" {
		t.Fatalf("unexpected args: %v", engine.args)
	}
}

func TestSpeakUnconfigured(t *testing.T) {
	engine := NewCommandEngine("", nil)
	if err := engine.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestSpeakEmptyText(t *testing.T) {
	engine := NewCommandEngine("true", nil)
	if err := engine.Speak(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestSpeakRunsCommand(t *testing.T) {
	engine := NewCommandEngine("true", nil)
	if err := engine.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("speak: %v", err)
	}
}

func TestSpeakCommandFailure(t *testing.T) {
	engine := NewCommandEngine("false", nil)
	if err := engine.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestSpeakCancelledContext(t *testing.T) {
	engine := NewCommandEngine("sleep 10", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := engine.Speak(ctx, "hello"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
