// Package llm holds the oracle: the chat-facing generation layer that turns
// retrieved governing-plan context into an answer via the Ollama API.
package llm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// FallbackMessage is returned to chat users whenever retrieval or generation
// fails. The chat transport never sees a raw error.
const FallbackMessage = "Lo siento, no puedo responder en este momento. Por favor intenta de nuevo más tarde."

// NoContextMessage instructs users when no relevant plan content was found.
const NoContextMessage = "No encontré información sobre eso en los planes de gobierno disponibles."

// OllamaLLM handles interactions with the Ollama generation API.
type OllamaLLM struct {
	Client *api.Client
	Model  string
}

// NewOllamaLLM creates a new Ollama LLM client. The host defaults to the
// OLLAMA_HOST environment variable.
func NewOllamaLLM(model string) (*OllamaLLM, error) {
	client := api.NewClient(envconfig.Host(), http.DefaultClient)

	return &OllamaLLM{
		Client: client,
		Model:  model,
	}, nil
}

// GenerateResponse generates a response from the LLM.
func (o *OllamaLLM) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": 0.1,
			"num_predict": 1024,
		},
	}

	var responseBuilder strings.Builder

	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return responseBuilder.String(), nil
}

// Generator produces text from a prompt.
type Generator interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// ContextRetriever produces a formatted context block for a query.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string, topK int) (string, error)
}

// Oracle answers questions about governing plans using retrieved context.
type Oracle struct {
	Retriever ContextRetriever
	Generator Generator
	TopK      int
}

// NewOracle creates an oracle over a retriever and a generator.
func NewOracle(retriever ContextRetriever, generator Generator, topK int) *Oracle {
	return &Oracle{Retriever: retriever, Generator: generator, TopK: topK}
}

// GeneratePrompt assembles the generation prompt from the user question and
// the retrieved context block.
func (o *Oracle) GeneratePrompt(query, contextBlock string) string {
	var promptBuilder strings.Builder

	promptBuilder.WriteString("Eres un asistente electoral imparcial. ")
	promptBuilder.WriteString("Responde preguntas sobre los planes de gobierno usando únicamente el contexto proporcionado. ")
	promptBuilder.WriteString("Menciona siempre el partido al que pertenece cada propuesta. ")
	promptBuilder.WriteString("Si la respuesta no está en el contexto, responde exactamente: '" + NoContextMessage + "'\n\n")

	promptBuilder.WriteString("Contexto de los planes de gobierno:\n")
	promptBuilder.WriteString(contextBlock)
	promptBuilder.WriteString("\n\n")

	promptBuilder.WriteString("Pregunta: " + query + "\n\n")
	promptBuilder.WriteString("Respuesta: ")

	return promptBuilder.String()
}

// Answer answers a chat question. It never returns an error: retrieval and
// generation failures are logged and collapse to a user-safe message.
func (o *Oracle) Answer(ctx context.Context, query string) string {
	contextBlock, err := o.Retriever.RetrieveContext(ctx, query, o.TopK)
	if err != nil {
		log.Printf("oracle: context retrieval failed: %v", err)
		return FallbackMessage
	}
	if contextBlock == "" {
		return NoContextMessage
	}

	answer, err := o.Generator.GenerateResponse(ctx, o.GeneratePrompt(query, contextBlock))
	if err != nil {
		log.Printf("oracle: generation failed: %v", err)
		return FallbackMessage
	}
	return answer
}
