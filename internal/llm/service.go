package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/longregen/gepa/internal/adapters/circuitbreaker"
	"github.com/longregen/gepa/internal/adapters/metrics"
	"github.com/longregen/gepa/internal/gepa"
)

// completionTimeout bounds a single reflective-proposal completion so a
// stalled endpoint can't hang an optimization run indefinitely.
const completionTimeout = 2 * time.Minute

// Service wraps Client with a circuit breaker and implements gepa.LLM, the
// minimal text-completion interface the default reflective proposer drives.
type Service struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewService creates a new LLM service.
func NewService(client *Client) *Service {
	return &Service{
		client:  client,
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// Complete implements gepa.LLM. A circuit-open or transport failure is
// returned as an error; a well-formed but empty completion comes back as
// an Ok:false result rather than an error, since that's a model response,
// not a systemic failure.
func (s *Service) Complete(ctx context.Context, prompt string, options gepa.CompletionOptions) (gepa.CompletionResult, error) {
	ctx, span := otel.Tracer("gepa-llm").Start(ctx, "llm.complete",
		trace.WithAttributes(attribute.String("llm.model", options.Model)))
	defer span.End()

	start := time.Now()
	var result gepa.CompletionResult
	err := s.breaker.Execute(func() error {
		var err error
		result, err = s.doComplete(ctx, prompt, options)
		return err
	})
	metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())
	metrics.LLMCircuitState.Set(float64(s.breaker.State()))
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return gepa.CompletionResult{}, err
	}
	status := "ok"
	if !result.Ok {
		status = "empty"
	}
	span.SetAttributes(attribute.String("llm.completion_status", status))
	metrics.LLMRequestsTotal.WithLabelValues(status).Inc()
	return result, nil
}

func (s *Service) doComplete(ctx context.Context, prompt string, options gepa.CompletionOptions) (gepa.CompletionResult, error) {
	timeout := completionTimeout
	if options.TimeoutMS > 0 {
		timeout = time.Duration(options.TimeoutMS) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := []ChatMessage{{Role: "user", Content: prompt}}
	params := CompletionParams{
		Model:       options.Model,
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
		TopP:        options.TopP,
	}

	response, err := s.client.Chat(ctx, messages, params)
	if err != nil {
		return gepa.CompletionResult{}, fmt.Errorf("completion request failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return gepa.CompletionResult{Ok: false, Reason: "no choices in response"}, nil
	}

	text := response.Choices[0].Message.Content
	if text == "" {
		return gepa.CompletionResult{Ok: false, Reason: "empty completion"}, nil
	}
	return gepa.CompletionResult{Ok: true, Text: text}, nil
}
