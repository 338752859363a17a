package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		server  string
		session string
		reset   bool
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a chat message to a running genai service",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			http := resty.New().
				SetBaseURL(server).
				SetTimeout(5 * time.Minute)

			if reset {
				resp, err := http.R().
					SetHeader("X-Session-Id", session).
					Post("/chat/reset")
				if err != nil {
					return fmt.Errorf("reset failed: %w", err)
				}
				if resp.IsError() {
					return fmt.Errorf("reset failed: %s", resp.Status())
				}
				fmt.Println("conversation reset")
				return nil
			}

			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return fmt.Errorf("message is required (or use --reset)")
			}

			resp, err := http.R().
				SetHeader("Content-Type", "text/plain").
				SetHeader("X-Session-Id", session).
				SetBody(message).
				Post("/chatclient")
			if err != nil {
				return fmt.Errorf("chat request failed: %w", err)
			}
			if resp.IsError() {
				return fmt.Errorf("chat failed (%s): %s", resp.Status(), resp.String())
			}

			fmt.Println(resp.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8084", "base URL of the genai service")
	cmd.Flags().StringVar(&session, "session", "", "session ID (empty uses the default session)")
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the conversation instead of sending a message")

	return cmd
}
