// Command pkstl-genkey generates a long-term Ed25519 identity and seals
// it to disk under a passphrase, for use with pkstl-demo or any other
// PKSTL-speaking program.
package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/librelois/pkstl/internal/keystore"
	"github.com/librelois/pkstl/internal/signature"
)

var (
	home       string
	passphrase string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pkstl-genkey",
		Short: "Generate a PKSTL long-term identity and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".pkstl")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			kp, err := signature.GenerateKeyPair(rand.Reader)
			if err != nil {
				return err
			}

			path := filepath.Join(home, "identity.json")
			if err := keystore.Save(path, passphrase, kp); err != nil {
				return err
			}

			fmt.Printf("Identity created at %s\n", path)
			fmt.Printf("Public key: %x\n", kp.Public.Slice())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.pkstl)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect the identity")
	return root
}
