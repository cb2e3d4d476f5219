package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"webguard/auth"
)

// hashPasswordCommand prints a password encoded with the configured encoder,
// for writing seed data or config by hand.
func hashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Encode a password read from the terminal or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd.Context())
			if err != nil {
				return err
			}
			encoder, err := auth.NewPasswordEncoder(a.cfg.Security.PasswordEncoder, a.cfg.Security.BcryptCost)
			if err != nil {
				return err
			}

			password, err := readPassword()
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}
			encoded, err := encoder.Encode(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return err
		},
	}
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Enter Password: ")
		bytePassword, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(bytePassword), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
