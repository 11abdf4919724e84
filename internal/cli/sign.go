package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/pagedraft/internal/auth"
)

func newSignCmd() *cobra.Command {
	var keyPath string

	cmd := &cobra.Command{
		Use:   "sign [challenge]",
		Short: "Sign ed25519 login challenges",
		Long: `Sign the base64 challenge shown on the login page.

With a challenge argument the signature is printed once. Without one,
challenges are read from stdin until EOF or "quit".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pem, err := os.ReadFile(keyPath)
			if err != nil {
				return fmt.Errorf("read private key: %w", err)
			}
			key, err := auth.ParsePrivateKey(pem)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				sig, err := auth.SignChallenge(key, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, sig)
				return nil
			}

			fmt.Fprintln(out, "Enter challenges one by one. Type 'quit' to exit.")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, promptStyle.Render("Enter challenge (base64): "))

				if !scanner.Scan() {
					break
				}

				challenge := strings.TrimSpace(scanner.Text())
				if challenge == "" {
					continue
				}
				if challenge == "quit" {
					break
				}

				sig, err := auth.SignChallenge(key, challenge)
				if err != nil {
					fmt.Fprintln(out, outputStyle.Render("Error: invalid base64"))
					continue
				}
				fmt.Fprintln(out, outputStyle.Render("Signature: "+sig))
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&keyPath, "key", "k", "privkey.pem", "PKCS#8 PEM private key")
	return cmd
}
