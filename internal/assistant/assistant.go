package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mimercado/marketplace/internal/aiclient"
)

const (
	maxMessageLen = 500
	historyWindow = 10
	historyMax    = 50
	maxTokens     = 2048
	temperature   = 0.7
	suggestTokens = 512
	suggestTemp   = 0.4
)

var ErrValidation = errors.New("assistant: validation")

const systemPrompt = "Eres un asistente amable y útil de Mi Mercado, un marketplace online. " +
	"Tu objetivo es ayudar a los usuarios con:\n" +
	"- Publicar productos para vender\n" +
	"- Comprar productos de otros usuarios\n" +
	"- Realizar intercambios o trueques\n" +
	"- Navegar por la plataforma\n" +
	"- Resolver dudas sobre el proceso de compra/venta\n\n" +
	"Responde siempre en español de manera clara, concisa y amigable. " +
	"Si no sabes algo, admítelo honestamente."

// Generator is the outbound text-generation collaborator.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

type Turn struct {
	User      string    `json:"user"`
	AI        string    `json:"ai"`
	Timestamp time.Time `json:"timestamp"`
}

// Service keeps a rolling per-user conversation and builds prompts for
// the chat and price-suggestion features. History lives in memory; a
// restart starts conversations fresh.
type Service struct {
	AI Generator

	mu      sync.Mutex
	history map[uint][]Turn
}

func New(ai Generator) *Service {
	return &Service{
		AI:      ai,
		history: make(map[uint][]Turn),
	}
}

func (s *Service) History(userID uint) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.history[userID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *Service) ClearHistory(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, userID)
}

// Chat answers one user message with the recent conversation as
// context. Adapter failures come back as the fallback text, never as
// an error the page has to handle.
func (s *Service) Chat(ctx context.Context, userID uint, message string) (string, error) {
	message = strings.TrimSpace(message)
	if len(message) < 2 {
		return "", fmt.Errorf("el mensaje debe tener al menos 2 caracteres: %w", ErrValidation)
	}
	if len(message) > maxMessageLen {
		return "", fmt.Errorf("el mensaje es demasiado largo (máximo %d caracteres): %w", maxMessageLen, ErrValidation)
	}

	s.mu.Lock()
	turns := s.history[userID]
	recent := turns
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	for _, t := range recent {
		fmt.Fprintf(&b, "Usuario: %s\nAsistente: %s\n\n", t.User, t.AI)
	}
	fmt.Fprintf(&b, "Usuario: %s\nAsistente: ", message)
	s.mu.Unlock()

	reply, err := s.AI.GenerateText(ctx, b.String(), maxTokens, temperature)
	degraded := errors.Is(err, aiclient.ErrUnavailable)
	if err != nil && !degraded {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = "Lo siento, no pude generar una respuesta. ¿Podrías reformular tu pregunta?"
	}

	// fallback replies are not part of the conversation
	if degraded {
		return reply, nil
	}

	s.mu.Lock()
	turns = append(s.history[userID], Turn{User: message, AI: reply, Timestamp: time.Now().UTC()})
	if len(turns) > historyMax {
		turns = turns[len(turns)-historyMax:]
	}
	s.history[userID] = turns
	s.mu.Unlock()

	return reply, nil
}

type PriceSuggestRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Brand        string           `json:"brand"`
	CurrentPrice *decimal.Decimal `json:"current_price"`
}

// SuggestPrice asks the model for a short pricing recommendation.
func (s *Service) SuggestPrice(ctx context.Context, req PriceSuggestRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", fmt.Errorf("el título es obligatorio: %w", ErrValidation)
	}

	var b strings.Builder
	b.WriteString("Eres un experto en precios de un marketplace online en español. ")
	b.WriteString("Sugiere un precio de venta razonable para el siguiente producto y justifica brevemente la sugerencia.\n\n")
	fmt.Fprintf(&b, "Título: %s\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(&b, "Descripción: %s\n", req.Description)
	}
	if req.Brand != "" {
		fmt.Fprintf(&b, "Marca: %s\n", req.Brand)
	}
	if req.CurrentPrice != nil {
		fmt.Fprintf(&b, "Precio actual: %s\n", req.CurrentPrice.StringFixed(2))
	}
	b.WriteString("\nResponde en español, en no más de cuatro oraciones.")

	reply, err := s.AI.GenerateText(ctx, b.String(), suggestTokens, suggestTemp)
	if err != nil && !errors.Is(err, aiclient.ErrUnavailable) {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
