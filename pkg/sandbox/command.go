package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTimeout bounds one run of a Command executor.
const DefaultTimeout = 5 * time.Second

// Command runs snippets in an external script runner. Each call starts the
// runner, writes {"source", "args"} as JSON to its stdin and reads the JSON
// result from its stdout. A non-zero exit is an ExecuteError carrying stderr.
type Command struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

type request struct {
	Source string       `json:"source"`
	Args   []requestArg `json:"args"`
}

type requestArg struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// NewCommand splits line on spaces into a program and its arguments.
func NewCommand(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, &ExecuteCodeError{Kind: InvalidArgs, Message: "empty sandbox command"}
	}
	return &Command{Path: fields[0], Args: fields[1:], Timeout: DefaultTimeout}, nil
}

func (c *Command) ExecuteCode(source string, args []Arg) (string, error) {
	req := request{Source: source, Args: make([]requestArg, len(args))}
	for i, a := range args {
		req.Args[i] = requestArg{Name: a.Name, Value: a.Value}
	}
	input, err := json.Marshal(req)
	if err != nil {
		return "", &ExecuteCodeError{Kind: InvalidArgs, Message: err.Error()}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			message = err.Error()
		}
		return "", &ExecuteCodeError{Kind: ExecuteError, Message: message}
	}

	result := strings.TrimSpace(stdout.String())
	if result == "" || result == "undefined" {
		return "", &ExecuteCodeError{Kind: Undefined}
	}
	if !json.Valid([]byte(result)) {
		return "", &ExecuteCodeError{Kind: InvalidOutput, Message: result}
	}
	return result, nil
}

func (c *Command) ExecuteValidateCode(source string, value string) (string, error) {
	return c.ExecuteCode(source, []Arg{{Name: "data", Value: value}})
}
