package explain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// stderrTail bounds how much CLI stderr is carried into an error.
const stderrTail = 512

// CLIClient answers through a locally installed claude CLI in print mode.
// The user prompt goes in on stdin; stdout is the explanation.
type CLIClient struct {
	path   string
	model  string
	logger *zap.Logger
}

func NewCLIClient(path, model string, logger *zap.Logger) *CLIClient {
	return &CLIClient{path: path, model: model, logger: logger}
}

func (c *CLIClient) args(systemPrompt string) []string {
	args := []string{"--print", "--output-format", "text", "--max-turns", "1", "--system-prompt", systemPrompt}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	return args
}

func (c *CLIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.path, c.args(systemPrompt)...)
	cmd.Stdin = strings.NewReader(userPrompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > stderrTail {
			msg = msg[len(msg)-stderrTail:]
		}
		return nil, fmt.Errorf("run %s: %w: %s", c.path, err, msg)
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, fmt.Errorf("run %s: empty response", c.path)
	}
	c.logger.Debug("cli explanation generated",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)),
	)
	return &LLMResponse{Content: text}, nil
}
