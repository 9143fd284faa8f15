package testkit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"feastbench/ports"
)

// ScriptedClient is a ModelClient double. Responses are looked up by prompt
// substring; unmatched prompts get the Default response. FailFirst makes the
// first N calls per prompt fail, which exercises the retry path.
type ScriptedClient struct {
	mu        sync.Mutex
	Responses map[string]string
	Default   string
	FailFirst int
	Err       error

	failures map[string]int
	calls    int64
}

func NewScriptedClient(defaultResponse string) *ScriptedClient {
	return &ScriptedClient{
		Responses: make(map[string]string),
		Default:   defaultResponse,
		failures:  make(map[string]int),
	}
}

// Script registers a canned response for prompts containing the substring
func (c *ScriptedClient) Script(substr, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses[substr] = response
}

func (c *ScriptedClient) Query(ctx context.Context, model, prompt string, _ ports.DecodingParams) (*ports.ModelResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	atomic.AddInt64(&c.calls, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	if c.FailFirst > 0 && c.failures[prompt] < c.FailFirst {
		c.failures[prompt]++
		return nil, fmt.Errorf("scripted transient failure %d for %s", c.failures[prompt], model)
	}

	content := c.Default
	for substr, resp := range c.Responses {
		if substr != "" && strings.Contains(prompt, substr) {
			content = resp
			break
		}
	}
	return &ports.ModelResponse{Content: content, TotalTokens: len(content) / 4}, nil
}

// Calls returns the total number of Query invocations
func (c *ScriptedClient) Calls() int {
	return int(atomic.LoadInt64(&c.calls))
}
