// Command pkstl-demo runs a two-sided PKSTL negotiation and user-message
// exchange over a net.Pipe, loading each side's identity from a keystore
// sealed by pkstl-genkey. It is the "S1 happy path" scenario of spec.md
// §8 wired up as a runnable program rather than a test.
package main

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/librelois/pkstl"
	"github.com/librelois/pkstl/internal/keystore"
)

var (
	aliceIdentity string
	alicePass     string
	bobIdentity   string
	bobPass       string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pkstl-demo",
		Short: "Run a loopback PKSTL handshake and ping-pong exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	root.Flags().StringVar(&aliceIdentity, "alice-identity", "", "path to Alice's sealed identity")
	root.Flags().StringVar(&alicePass, "alice-passphrase", "", "passphrase for Alice's identity")
	root.Flags().StringVar(&bobIdentity, "bob-identity", "", "path to Bob's sealed identity")
	root.Flags().StringVar(&bobPass, "bob-passphrase", "", "passphrase for Bob's identity")
	return root
}

func run() error {
	alice, err := keystore.Load(aliceIdentity, alicePass)
	if err != nil {
		return fmt.Errorf("load Alice's identity: %w", err)
	}
	bob, err := keystore.Load(bobIdentity, bobPass)
	if err != nil {
		return fmt.Errorf("load Bob's identity: %w", err)
	}

	aliceLayer, err := pkstl.NewSecureLayer(pkstl.Config{}, alice, &bob.Public)
	if err != nil {
		return err
	}
	bobLayer, err := pkstl.NewSecureLayer(pkstl.Config{}, bob, &alice.Public)
	if err != nil {
		return err
	}

	aliceConn, bobConn := net.Pipe()
	defer aliceConn.Close()
	defer bobConn.Close()

	errs := make(chan error, 2)
	go func() { errs <- side("alice", aliceLayer, aliceConn, "hello", "world") }()
	go func() { errs <- side("bob", bobLayer, bobConn, "world", "hello") }()

	if err := <-errs; err != nil {
		return err
	}
	return <-errs
}

// side runs one peer's half of the handshake plus one ping-pong round:
// it sends want and expects to read back expect.
func side(name string, layer *pkstl.SecureLayer, conn net.Conn, want, expect string) error {
	connectBytes, err := layer.CreateConnectMessage(nil)
	if err != nil {
		return fmt.Errorf("%s: create_connect_message: %w", name, err)
	}
	if _, err := conn.Write(connectBytes); err != nil {
		return fmt.Errorf("%s: write connect: %w", name, err)
	}

	sent := false
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("%s: read: %w", name, err)
		}

		events, outbound, err := layer.FeedBytes(buf[:n])
		if err != nil {
			return fmt.Errorf("%s: feed_bytes: %w", name, err)
		}
		if len(outbound) > 0 {
			if _, err := conn.Write(outbound); err != nil {
				return fmt.Errorf("%s: write ack: %w", name, err)
			}
		}

		for _, ev := range events {
			switch ev.Kind {
			case pkstl.EventNegotiationComplete:
				log.Printf("%s: negotiation complete", name)
				if !sent {
					frame, err := layer.WriteUserMessage([]byte(want))
					if err != nil {
						return fmt.Errorf("%s: write_user_message: %w", name, err)
					}
					if _, err := conn.Write(frame); err != nil {
						return fmt.Errorf("%s: write user frame: %w", name, err)
					}
					sent = true
				}
			case pkstl.EventUserMessage:
				got := string(ev.Plaintext)
				log.Printf("%s: received %q", name, got)
				if got != expect {
					return fmt.Errorf("%s: expected %q, got %q", name, expect, got)
				}
				return nil
			}
		}
	}
}
