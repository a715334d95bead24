package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/suPer8Hu/estate-chat/internal/ai"
	"github.com/suPer8Hu/estate-chat/internal/config"
)

func TestRegistry_Names(t *testing.T) {
	got := Registry(config.Config{}).Names()
	if !reflect.DeepEqual(got, []string{"ollama", "openrouter"}) {
		t.Fatalf("unexpected providers %v", got)
	}
}

func TestProvider_ModelFallback(t *testing.T) {
	cfg := config.Config{AIProvider: "openrouter", OpenRouterModel: "openrouter/auto", OpenRouterAPIKey: "k"}
	p, err := Provider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	or, ok := p.(*ai.OpenRouterProvider)
	if !ok || or.Model != "openrouter/auto" {
		t.Fatalf("unexpected provider %#v", p)
	}

	cfg.AIModel = "meta/llama"
	p, _ = Provider(context.Background(), cfg)
	if p.(*ai.OpenRouterProvider).Model != "meta/llama" {
		t.Fatalf("AI_MODEL not honoured")
	}
}

func TestProvider_Unknown(t *testing.T) {
	_, err := Provider(context.Background(), config.Config{AIProvider: "nope"})
	if !errors.Is(err, ai.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}
