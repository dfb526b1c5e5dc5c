package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Live event stream commands",
	}

	cmd.AddCommand(newLiveEventsCmd())
	cmd.AddCommand(newLiveClickCmd())
	cmd.AddCommand(newLiveToggleBlockCmd())
	cmd.AddCommand(newLivePlayCmd())

	return cmd
}

func newLiveEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream live events",
		Long: `Connect to the live event stream and print events as they arrive.

The first event is "connected" and carries the connection id that
"live click" and "live toggle-block" address.

Events include:
  - connected: Connection id for this stream
  - playerCreated: A player registered
  - updatePlayerStatus: A player's status changed
  - updateRankings: Fresh rankings
  - updatePlayer: An admin edited a player
  - playerDeleted: An admin deleted a player
  - updateClickCount: Result of a click sent on this connection
  - error: A click or toggle sent on this connection failed

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stream, err := openStream(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()

			for {
				ev, err := stream.Next()
				if err != nil {
					if ctx.Err() != nil || errors.Is(err, io.EOF) {
						if !jsonOutput {
							fmt.Println("Disconnected")
						}
						return nil
					}
					return fmt.Errorf("stream error: %w", err)
				}
				printEvent(ev, jsonOutput)
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

func newLiveClickCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "click <connId>",
		Short: "Send a click on an open live connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AcceptedResult
			if err := client.Post(cmd.Context(), "/api/live/"+args[0]+"/click", map[string]string{"userId": userID}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to click for (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newLiveToggleBlockCmd() *cobra.Command {
	var playerID string

	cmd := &cobra.Command{
		Use:   "toggle-block <connId>",
		Short: "Flip a player between active and blocked over a live connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AcceptedResult
			if err := client.Post(cmd.Context(), "/api/live/"+args[0]+"/toggle-block", map[string]string{"playerId": playerID}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&playerID, "player", "", "Player id (required)")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

func newLivePlayCmd() *cobra.Command {
	var userID string
	var clicks int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Open a live connection, click a number of times and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clicks < 1 {
				return fmt.Errorf("--clicks must be at least 1")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			stream, err := openStream(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()

			first, err := stream.Next()
			if err != nil {
				return fmt.Errorf("stream error: %w", err)
			}
			if first.Event != "connected" {
				return fmt.Errorf("expected connected event, got %q", first.Event)
			}
			var connected struct {
				ConnectionID string `json:"connectionId"`
			}
			if err := json.Unmarshal([]byte(first.Data), &connected); err != nil {
				return fmt.Errorf("bad connected event: %w", err)
			}

			path := "/api/live/" + connected.ConnectionID + "/click"
			for range clicks {
				if err := client.Post(ctx, path, map[string]string{"userId": userID}, nil); err != nil {
					return err
				}
			}

			var result PlayResult
			for result.Clicks < clicks {
				ev, err := stream.Next()
				if err != nil {
					return fmt.Errorf("stream error: %w", err)
				}
				switch ev.Event {
				case "updateClickCount":
					var update ClickUpdate
					if err := json.Unmarshal([]byte(ev.Data), &update); err != nil {
						return fmt.Errorf("bad click update: %w", err)
					}
					result.Clicks++
					result.Last = update
				case "error":
					var liveErr LiveError
					_ = json.Unmarshal([]byte(ev.Data), &liveErr)
					return fmt.Errorf("%s (%s)", liveErr.Message, liveErr.Code)
				}
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to click for (required)")
	cmd.Flags().IntVar(&clicks, "clicks", 1, "Number of clicks to send")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

// eventStream reads events from an open live connection
type eventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func openStream(ctx context.Context) (*eventStream, error) {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/live/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No client timeout; the context bounds the stream
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return &eventStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

// Next blocks until a complete event arrives. Keepalive comments are skipped.
func (s *eventStream) Next() (SSEEvent, error) {
	var event string
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "" && event != "":
			return SSEEvent{Time: time.Now(), Event: event, Data: strings.Join(dataLines, "\n")}, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		return SSEEvent{}, err
	}
	return SSEEvent{}, io.EOF
}

func (s *eventStream) Close() error {
	return s.body.Close()
}

func printEvent(ev SSEEvent, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.Marshal(ev)
		fmt.Println(string(data))
		return
	}

	displayData := strings.ReplaceAll(ev.Data, "\n", " ")
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", ev.Time.Format("2006-01-02 15:04:05"), ev.Event, displayData)
}
