package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var chatFlags struct {
	serverURL string
	sessionID string
	timeout   time.Duration
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to a running relay",
	Long: `Send messages to a running relay from the terminal.

With a message argument, sends it and prints the reply. Without
arguments, starts an interactive session that keeps conversation
context until EOF (Ctrl+D).

Examples:
  # One-shot message
  relay chat "What is the capital of France?"

  # Continue an existing session
  relay chat --session 6b3f... "And its population?"

  # Interactive session
  relay chat`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatFlags.serverURL, "server", "http://localhost:8080", "relay server URL")
	chatCmd.Flags().StringVar(&chatFlags.sessionID, "session", "", "session id to continue")
	chatCmd.Flags().DurationVar(&chatFlags.timeout, "timeout", 2*time.Minute, "per-message timeout")
}

func runChat(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: chatFlags.timeout}
	sessionID := chatFlags.sessionID

	if len(args) > 0 {
		reply, newSession, err := sendChat(client, sessionID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(reply)
		if sessionID == "" {
			fmt.Fprintf(os.Stderr, "session: %s\n", newSession)
		}
		return nil
	}

	// Interactive mode keeps the session across turns.
	fmt.Fprintln(os.Stderr, "Interactive session (Ctrl+D to exit)")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		reply, newSession, err := sendChat(client, sessionID, message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		sessionID = newSession
		fmt.Println(reply)
	}
	return scanner.Err()
}

// sendChat posts one message and returns the reply and session id.
func sendChat(client *http.Client, sessionID, message string) (string, string, error) {
	payload, err := json.Marshal(map[string]string{
		"session_id":   sessionID,
		"user_message": message,
	})
	if err != nil {
		return "", "", err
	}

	resp, err := client.Post(
		strings.TrimRight(chatFlags.serverURL, "/")+"/v1/chat",
		"application/json",
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", "", fmt.Errorf("relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return "", "", fmt.Errorf("%s (%s)", errResp.Error.Message, errResp.Error.Code)
		}
		return "", "", fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	var chatResp struct {
		SessionID string `json:"session_id"`
		Reply     string `json:"reply"`
	}
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", "", fmt.Errorf("unreadable response: %w", err)
	}
	return chatResp.Reply, chatResp.SessionID, nil
}
