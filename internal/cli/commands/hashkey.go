package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/metacache/auth"
)

type hashKeyOptions struct {
	generate bool
	sha256   bool
	cost     int
}

// NewHashKeyCommand creates the hash-key command
func NewHashKeyCommand() *cobra.Command {
	opts := &hashKeyOptions{}

	cmd := &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Hash an admin API key for auth.api_keys",
		Long: `Print the key_hash value for an admin API key.

The key is read from the argument, or from the first line of stdin. With
--generate a new random key is created and printed alongside its hash.
Hashes are bcrypt unless --sha256 is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(cmd, args, opts.generate)
			if err != nil {
				return err
			}

			var hash string
			if opts.sha256 {
				hash = auth.HashAPIKey(key)
			} else if hash, err = auth.BcryptAPIKey(key, opts.cost); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			label := color.New(color.FgCyan, color.Bold)
			if opts.generate {
				label.Fprint(out, "key: ")
				fmt.Fprintln(out, key)
			}
			label.Fprint(out, "key_hash: ")
			fmt.Fprintln(out, hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.generate, "generate", false, "generate a new random key")
	cmd.Flags().BoolVar(&opts.sha256, "sha256", false, "print a SHA-256 digest instead of a bcrypt hash")
	cmd.Flags().IntVar(&opts.cost, "cost", 0, "bcrypt cost (default 10)")
	return cmd
}

func readKey(cmd *cobra.Command, args []string, generate bool) (string, error) {
	switch {
	case generate && len(args) > 0:
		return "", errors.New("--generate does not take a key argument")
	case generate:
		return strings.ReplaceAll(uuid.NewString(), "-", ""), nil
	case len(args) == 1:
		if key := strings.TrimSpace(args[0]); key != "" {
			return key, nil
		}
		return "", errors.New("key is blank")
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if key := strings.TrimSpace(line); key != "" {
		return key, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return "", errors.New("no key given on the command line or stdin")
}
