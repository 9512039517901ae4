package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/IA683/AstraGPT/internal/config"
	"github.com/IA683/AstraGPT/internal/domain"
	"github.com/IA683/AstraGPT/internal/infra/completion"
	"github.com/IA683/AstraGPT/internal/infra/policy"
	"github.com/IA683/AstraGPT/internal/usecase"
)

func runChat(args []string) int {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	engine, err := newPolicyEngine(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init policy: %v\n", err)
		return 1
	}
	validator := usecase.NewKeyValidator(nil)
	reader := bufio.NewReader(os.Stdin)

	model, err := promptForKey(ctx, reader, validator, engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	client := completion.New(cfg.CompletionBaseURL, cfg.CompletionAPIKey)
	session := usecase.NewChatSession(client, model, cfg.SystemPrompt)

	fmt.Println("Connecting to server...")
	time.Sleep(2 * time.Second)
	clearScreen()

	for {
		fmt.Print(colorize(colorYellow, "You > "))
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Println()
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read input: %v\n", err)
			return 1
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "/quit") {
			fmt.Println("bye!")
			return 0
		}

		fmt.Print(colorize(colorBlue, "AstraGPT > "))
		_, err = session.Send(ctx, input, func(chunk string) {
			fmt.Print(chunk)
		})
		fmt.Println()
		if err != nil {
			fmt.Println(colorize(colorRed, fmt.Sprintf("Server Error: %v", err)))
		}
	}
}

// promptForKey loops until a valid key is entered and returns the model the
// policy selects for the resulting tier.
func promptForKey(ctx context.Context, reader *bufio.Reader, validator *usecase.KeyValidator, engine *policy.Engine) (string, error) {
	for {
		fmt.Print("Key: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		candidate := strings.TrimSpace(line)

		tier := validator.Validate(candidate)
		if tier == domain.TierRejected {
			fmt.Println(colorize(colorRed, "Incorrect Key!"))
			continue
		}
		eval, err := engine.Evaluate(ctx, domain.PolicyInput{Tier: tier})
		if err != nil {
			return "", fmt.Errorf("evaluate policy: %w", err)
		}
		if !eval.Result.Allow || eval.Result.Model == "" {
			fmt.Println(colorize(colorRed, "Incorrect Key!"))
			continue
		}
		if tier == domain.TierElevated {
			fmt.Printf("Shared key accepted. Switching to %s.\n", eval.Result.Model)
		}
		return eval.Result.Model, nil
	}
}

func newPolicyEngine(ctx context.Context, cfg config.Config) (*policy.Engine, error) {
	if cfg.PolicyPath != "" {
		return policy.NewEngineFromPath(ctx, cfg.PolicyPath)
	}
	return policy.NewEngine(ctx)
}
