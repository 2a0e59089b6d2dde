package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// CredentialPrompter asks the user for client credentials when the
// provider cannot register a client.
type CredentialPrompter interface {
	PromptClientCredentials(domain string) (clientID, clientSecret string, err error)
}

// ReadlinePrompter prompts on the terminal. The secret is read without echo.
type ReadlinePrompter struct {
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// PromptClientCredentials implements CredentialPrompter.
func (p ReadlinePrompter) PromptClientCredentials(domain string) (string, string, error) {
	stdout := p.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "Client ID: ",
		Stdin:           p.Stdin,
		Stdout:          stdout,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to create prompt: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(stdout, "%s does not support dynamic client registration.\n", domain)
	fmt.Fprintln(stdout, "Enter the client credentials issued for taskctl.")

	clientID, err := rl.Readline()
	if err != nil {
		return "", "", promptError(err)
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return "", "", errors.New("client ID must not be empty")
	}

	secret, err := rl.ReadPassword("Client secret (leave empty for a public client): ")
	if err != nil {
		return "", "", promptError(err)
	}

	return clientID, strings.TrimSpace(string(secret)), nil
}

func promptError(err error) error {
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return errors.New("credential entry cancelled")
	}
	return fmt.Errorf("failed to read credentials: %w", err)
}
