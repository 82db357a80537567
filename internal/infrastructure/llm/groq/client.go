package groq

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/edgarqa/edgarqa/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible chat/embedding endpoint (Groq by
// default). The same client serves drafting, judging, SQL planning, and
// passage embedding; callers pick the model per call.
type Client struct {
	api        *openai.Client
	embedModel string
	executor   *resilience.Executor
}

func New(baseURL, apiKey, embedModel string, executor *resilience.Executor) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		embedModel: embedModel,
		executor:   executor,
	}
}

func (c *Client) Complete(ctx context.Context, model, system, user string) (string, error) {
	return c.complete(ctx, model, system, user, nil)
}

func (c *Client) CompleteJSON(ctx context.Context, model, system, user string) (string, error) {
	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	return c.complete(ctx, model, system, user, format)
}

func (c *Client) complete(
	ctx context.Context,
	model, system, user string,
	format *openai.ChatCompletionResponseFormat,
) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: format,
	}

	var content string
	call := func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion: empty choices")
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "llm.complete", call, classifyLLMError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("llm complete", err)
	}
	return content, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embedModel),
	}

	var vectors [][]float32
	call := func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err != nil {
			return fmt.Errorf("create embeddings: %w", err)
		}
		vectors, err = orderEmbeddings(resp.Data, len(texts))
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "llm.embed", call, classifyLLMError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("llm embed", err)
	}
	return vectors, nil
}

// orderEmbeddings places each vector at the index the provider reports
// for it. The API contract does not promise response order matches
// input order, and a silent mis-assignment would corrupt the dense
// index for every passage in the batch.
func orderEmbeddings(data []openai.Embedding, want int) ([][]float32, error) {
	if len(data) != want {
		return nil, fmt.Errorf("create embeddings: want %d vectors, got %d", want, len(data))
	}
	vectors := make([][]float32, want)
	for _, d := range data {
		if d.Index < 0 || d.Index >= want {
			return nil, fmt.Errorf("create embeddings: index %d out of range [0,%d)", d.Index, want)
		}
		if vectors[d.Index] != nil {
			return nil, fmt.Errorf("create embeddings: duplicate index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}
