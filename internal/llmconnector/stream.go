package llmconnector

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harpou-com/llm-gateway/internal/llmerr"
	"github.com/harpou-com/llm-gateway/internal/metrics"
	"github.com/harpou-com/llm-gateway/internal/types"
)

// DeltaChunk is one streamed piece of a chat completion (spec 4.1:
// "a lazy sequence of delta chunks in insertion order").
type DeltaChunk struct {
	ID      string
	Created int64
	Model   string
	Delta   string
	Done    bool
}

// Stream is a cancellable, single-pass, finite sequence of DeltaChunks
// (spec 4.1, design note "Coroutine / callback control flow": "expose a
// cancellable iterator... and close it on client disconnect; never buffer
// the whole stream").
type Stream struct {
	upstream *openai.ChatCompletionStream
	cancel   context.CancelFunc
	model    string
	backend  string
}

// Next returns the next delta chunk, or io.EOF-equivalent via Done=true.
func (s *Stream) Next() (DeltaChunk, *llmerr.Error) {
	resp, err := s.upstream.Recv()
	if err != nil {
		if err.Error() == "EOF" {
			return DeltaChunk{Done: true}, nil
		}
		return DeltaChunk{}, llmerr.Classify(err)
	}
	if len(resp.Choices) == 0 {
		return DeltaChunk{ID: resp.ID, Created: resp.Created, Model: s.model}, nil
	}
	return DeltaChunk{
		ID:      resp.ID,
		Created: resp.Created,
		Model:   s.model,
		Delta:   resp.Choices[0].Delta.Content,
	}, nil
}

// Close stops upstream consumption promptly (spec 4.1: "closing it must
// stop upstream consumption promptly").
func (s *Stream) Close() {
	s.upstream.Close()
	if s.cancel != nil {
		s.cancel()
	}
}

// StreamChatCompletion opens a streaming chat completion with the same
// model-id resolution and failover-on-first-error behavior as
// ChatCompletion. Once a stream has started yielding chunks, a mid-stream
// error is surfaced to the caller rather than silently retried against
// another backend — switching backends mid-stream would duplicate partial
// output already forwarded to the client.
func (c *Connector) StreamChatCompletion(ctx context.Context, modelID string, messages []types.Message, opts ChatOptions) (*Stream, *llmerr.Error) {
	resolved, rErr := c.Resolve(modelID)
	if rErr != nil {
		return nil, rErr
	}

	inlined, substituted, err := InlineImages(ctx, messages)
	if err != nil {
		return nil, llmerr.New(llmerr.KindConfigMissing, "multimodal pre-processing failed", err)
	}
	jsonMode := opts.JSONMode && !substituted

	tried := map[string]bool{}
	current := resolved.Backend
	rawModel := resolved.RawModel

	streamCtx, cancel := context.WithCancel(ctx)

	for {
		tried[current.Name] = true
		client := c.clientFor(current)
		req := buildRequest(rawModel, inlined, opts, jsonMode)
		req.Stream = true

		upstream, err := client.CreateChatCompletionStream(streamCtx, req)
		if err == nil {
			return &Stream{upstream: upstream, cancel: cancel, model: rawModel, backend: current.Name}, nil
		}

		classified := llmerr.Classify(err)
		if !c.failoverEnabled() || !llmerr.IsFailoverError(classified) {
			cancel()
			return nil, classified
		}

		next, ok := c.nextUntried(tried)
		if !ok {
			cancel()
			return nil, classified
		}
		metrics.RecordFailover(current.Name)
		current = next
	}
}
