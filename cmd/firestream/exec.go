package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/firestream"
	httpAdapter "github.com/aretw0/firestream/pkg/adapters/http"
	"github.com/aretw0/firestream/pkg/domain"
)

// passwordEnv supplies the --email password when stdin is not a terminal.
const passwordEnv = "FIRESTREAM_PASSWORD"

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute actions read as JSON lines from stdin",
	Long: `Reads one action per line, e.g. {"kind":"Set","fields":{"path":"a","value":1}},
executes it and writes its result as a JSON line to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		app, err := openApp(cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		actions := make(chan domain.Action)
		sources := app.Driver()(ctx, actions)

		if email, _ := cmd.Flags().GetString("email"); email != "" {
			password, err := readPassword(os.Stdin, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := signIn(ctx, sources, actions, email, password); err != nil {
				return err
			}
			logger.Info("signed in", "email", email)
		}

		return runExec(ctx, sources, actions, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().String("email", "", "Sign in (creating the account if needed) before reading actions")
}

// runExec executes the actions of in one at a time and writes one result per
// line to out. Malformed lines produce an error result and do not stop the
// loop.
func runExec(ctx context.Context, sources *firestream.Sources, actions chan<- domain.Action, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req httpAdapter.ActionRequest
		var result httpAdapter.ActionResult
		if err := json.Unmarshal(line, &req); err != nil {
			result = httpAdapter.ActionResult{Error: fmt.Sprintf("invalid line: %v", err)}
		} else {
			result = execute(ctx, sources, actions, req)
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func execute(ctx context.Context, sources *firestream.Sources, actions chan<- domain.Action, req httpAdapter.ActionRequest) httpAdapter.ActionResult {
	if req.Key == "" {
		req.Key = domain.NewKey()
	}
	action, err := domain.DecodeAction(req.Kind, req.Key, req.Fields)
	if err != nil {
		return httpAdapter.ActionResult{Key: req.Key, Error: err.Error()}
	}
	v, err := await(ctx, sources, actions, action)
	if err != nil {
		return httpAdapter.ActionResult{Key: req.Key, Error: err.Error()}
	}
	return httpAdapter.ActionResult{Key: req.Key, Value: v}
}

// await pushes action and waits for its first result.
func await(ctx context.Context, sources *firestream.Sources, actions chan<- domain.Action, action domain.Action) (any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := sources.Responses(ctx, action.Key())
	select {
	case actions <- action:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	n, ok := <-results
	if !ok {
		return nil, errors.New("driver stopped")
	}
	return n.Value, n.Err
}

func signIn(ctx context.Context, sources *firestream.Sources, actions chan<- domain.Action, email, password string) error {
	_, err := await(ctx, sources, actions, domain.CreateUserWithEmailAndPassword(email, password).As(domain.NewKey()))
	if errors.Is(err, domain.ErrEmailInUse) {
		_, err = await(ctx, sources, actions, domain.SignInWithEmailAndPassword(email, password).As(domain.NewKey()))
	}
	return err
}

func readPassword(in *os.File, prompt io.Writer) (string, error) {
	if !term.IsTerminal(int(in.Fd())) {
		if password := os.Getenv(passwordEnv); password != "" {
			return password, nil
		}
		return "", fmt.Errorf("no terminal to prompt for a password; set %s", passwordEnv)
	}
	fmt.Fprint(prompt, "Password: ")
	password, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
