package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-companion/pkg/web"
)

var talkOpts struct {
	server string
	user   string
	token  string
	out    string
	keep   bool
}

var talkCmd = &cobra.Command{
	Use:   "talk <audio-file>...",
	Short: "Open a session and send audio files as utterances",
	Long: `Talk starts a session against a running server, sends each audio file as
one utterance over the session websocket and prints the replies. Reply audio
is written to --out when set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTalk,
}

func init() {
	f := talkCmd.Flags()
	f.StringVar(&talkOpts.server, "server", "http://localhost:8080", "server base URL")
	f.StringVar(&talkOpts.user, "user", "dev-user", "user id for header authentication")
	f.StringVar(&talkOpts.token, "token", os.Getenv("COMPANION_TOKEN"), "bearer token for JWT authentication")
	f.StringVar(&talkOpts.out, "out", "", "directory for reply audio")
	f.BoolVar(&talkOpts.keep, "keep", false, "leave the session open when done")
}

func authHeader() http.Header {
	h := http.Header{}
	if talkOpts.token != "" {
		h.Set("Authorization", "Bearer "+talkOpts.token)
	} else {
		h.Set("X-User-ID", talkOpts.user)
	}
	return h
}

func runTalk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()
	out := cmd.OutOrStdout()

	started, err := startSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "🎙️  Session %s (%s, %s)\n", started.SessionID, started.Language, started.Meeting.Platform)
	if started.Meeting.JoinURL != "" {
		fmt.Fprintf(out, "   Join: %s\n", started.Meeting.JoinURL)
	}
	if started.Greeting != "" {
		fmt.Fprintf(out, "🤖 %s\n", started.Greeting)
	}

	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(talkOpts.server, "/"), "http") + "/ws/sessions/" + started.SessionID
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, authHeader())
	if err != nil {
		return fmt.Errorf("connect audio channel: %w", err)
	}
	defer conn.Close()

	for i, path := range args {
		audio, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
			return fmt.Errorf("send %s: %w", path, err)
		}

		var frame web.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		if frame.Type == web.FrameError {
			fmt.Fprintf(out, "⚠️  %s: %s (%s)\n", filepath.Base(path), frame.Error.Error, frame.Error.Kind)
			continue
		}

		r := frame.Result
		fmt.Fprintf(out, "👤 [%s] %s\n", r.Language, r.Transcript)
		fmt.Fprintf(out, "🤖 %s\n", r.ReplyText)
		fmt.Fprintf(out, "   ⏱️  %s\n", r.Timings.FormatLatency())
		if r.Crisis {
			fmt.Fprintln(out, "   🚨 crisis language detected")
		}
		if talkOpts.out != "" && len(r.ReplyAudio) > 0 {
			name := filepath.Join(talkOpts.out, fmt.Sprintf("reply-%02d.mp3", i+1))
			if err := os.WriteFile(name, r.ReplyAudio, 0o644); err != nil {
				return err
			}
		}
	}

	if talkOpts.keep {
		return nil
	}
	if err := conn.WriteJSON(web.Command{Type: "end"}); err != nil {
		return err
	}
	var frame web.Frame
	if err := conn.ReadJSON(&frame); err == nil && frame.Type == web.FrameEnded {
		fmt.Fprintln(out, "👋 Session ended")
	}
	return nil
}

// startSession opens a session, or reuses the user's open one.
func startSession(ctx context.Context) (*web.StartResponse, error) {
	base := strings.TrimRight(talkOpts.server, "/")
	resp, err := call(ctx, http.MethodPost, base+"/api/ai/start-session", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var started web.StartResponse
		return &started, json.NewDecoder(resp.Body).Decode(&started)
	case http.StatusConflict:
		active, err := call(ctx, http.MethodGet, base+"/api/ai/active-session", nil)
		if err != nil {
			return nil, err
		}
		defer active.Body.Close()
		var info struct {
			SessionID string `json:"session_id"`
			Language  string `json:"language"`
		}
		if err := json.NewDecoder(active.Body).Decode(&info); err != nil {
			return nil, err
		}
		return &web.StartResponse{SessionID: info.SessionID, Language: info.Language}, nil
	}

	var e web.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&e)
	return nil, fmt.Errorf("start session: %s: %s", resp.Status, e.Error)
}

func call(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	req.Header = authHeader()
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}
