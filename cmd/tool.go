package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/aish-sh/aish/internal/llm"
)

// maxToolOutputBytes caps what a single command can feed back to the model
// before token-level truncation even runs.
const maxToolOutputBytes = 256 * 1024

func shellToolSpec() *llm.ToolSpec {
	return &llm.ToolSpec{
		Name:        "shell",
		Description: "Run a shell command on the user's machine and return its combined output. The user confirms every command before it runs.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"command": map[string]interface{}{
					"type":        "string",
					"description": "The command to run, interpreted by sh -c",
				},
			},
			"required": []string{"command"},
		},
	}
}

type shellArgs struct {
	Command string `json:"command"`
}

// runShellTool executes one model-requested command after the user approves
// it. Declined commands are reported back to the model, not treated as
// failures of the turn.
func (s *chatShell) runShellTool(ctx context.Context, call llm.ToolCall) (string, error) {
	var args shellArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return "", fmt.Errorf("bad shell arguments: %w", err)
	}
	if strings.TrimSpace(args.Command) == "" {
		return "", fmt.Errorf("empty command")
	}

	s.printf("\n  $ %s\n  run this? [y/N] ", args.Command)
	if !readConfirmation() {
		s.printf("  skipped\n")
		return "command declined by user", nil
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", args.Command)
	out, err := cmd.CombinedOutput()
	if len(out) > maxToolOutputBytes {
		out = out[:maxToolOutputBytes]
	}
	s.log.Event("shell_tool", map[string]any{
		"command": args.Command,
		"bytes":   len(out),
		"ok":      err == nil,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return fmt.Sprintf("%scommand failed: %v", out, err), nil
	}
	return string(out), nil
}

func readConfirmation() bool {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
