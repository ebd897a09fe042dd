// chat-cli is a terminal client for the coursechat gateway: it joins a
// course room, pages through history and sends messages, showing live
// traffic as it arrives.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"coursechat/internal/auth"
	"coursechat/internal/chat"
	"coursechat/internal/common"
	"coursechat/internal/transport/rest"
	"coursechat/internal/transport/ws"
)

func main() {
	gatewayURL := flag.String("gateway", "http://localhost:8080", "gateway base URL")
	userID := flag.String("user", "alice", "user ID")
	password := flag.String("password", "alice123", "password")
	courseID := flag.String("course", "go-101", "course room to join")
	flag.Parse()

	ctx := context.Background()

	tokens := auth.NewManager(*gatewayURL)
	if err := tokens.Login(ctx, auth.Credentials{UserID: *userID, Password: *password}); err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	client := rest.NewClient(*gatewayURL, tokens)
	feed := ws.NewFeed(wsBaseURL(*gatewayURL), tokens)

	session := chat.NewSession(client, client, client, feed, chat.SessionConfig{
		Profile: chat.Profile{UserID: *userID, UserName: *userID, Role: common.RoleStudent},
		OnMessage: func(msg *chat.ChatMessage) {
			printMessage(msg)
		},
	})

	if err := session.Join(ctx, *courseID); err != nil {
		log.Fatalf("Failed to join %s: %v", *courseID, err)
	}
	defer session.Leave()

	printHistory(session)

	fmt.Printf("Joined %s. Type a message, or /older, /upload <file>, /switch <course>, /quit\n", *courseID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if _, err := session.SendText(ctx, line); err != nil {
				fmt.Printf("! send failed: %v\n", err)
			}
			continue
		}
		if quit := runCommand(ctx, session, line); quit {
			return
		}
	}
}

func runCommand(ctx context.Context, session *chat.Session, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		return true

	case "/older":
		if !session.HasNextPage() {
			fmt.Println("-- no more history --")
			return false
		}
		if err := session.LoadOlder(ctx); err != nil {
			fmt.Printf("! load older failed: %v\n", err)
			return false
		}
		printHistory(session)

	case "/upload":
		if arg == "" {
			fmt.Println("usage: /upload <file>")
			return false
		}
		file, err := os.Open(arg)
		if err != nil {
			fmt.Printf("! open failed: %v\n", err)
			return false
		}
		defer file.Close()
		info, err := file.Stat()
		if err != nil {
			fmt.Printf("! stat failed: %v\n", err)
			return false
		}
		mimeType := mime.TypeByExtension(filepath.Ext(arg))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		if _, err := session.SendFile(ctx, filepath.Base(arg), mimeType, file, info.Size()); err != nil {
			fmt.Printf("! upload failed: %v\n", err)
		}

	case "/switch":
		if arg == "" {
			fmt.Println("usage: /switch <course>")
			return false
		}
		if err := session.Join(ctx, arg); err != nil {
			fmt.Printf("! join failed: %v\n", err)
			return false
		}
		fmt.Printf("Joined %s\n", arg)
		printHistory(session)

	default:
		fmt.Printf("unknown command %s\n", cmd)
	}
	return false
}

// printHistory dumps the room oldest first; the store keeps newest first.
func printHistory(session *chat.Session) {
	msgs := session.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		printMessage(msgs[i])
	}
}

func printMessage(msg *chat.ChatMessage) {
	marker := ""
	switch msg.Status {
	case common.StatusPending:
		marker = " (sending...)"
	case common.StatusFailed:
		marker = " (FAILED)"
	}

	body := ""
	switch p := msg.Payload.(type) {
	case *chat.TextPayload:
		body = p.Content
	case *chat.FilePayload:
		body = fmt.Sprintf("[file] %s %s", p.Filename, p.URL)
	case *chat.VideoPayload:
		body = fmt.Sprintf("[video] %s %s", p.Filename, p.URL)
	case *chat.AudioPayload:
		body = fmt.Sprintf("[audio] %s %s", p.Filename, p.URL)
	}

	fmt.Printf("%s %s: %s%s\n", msg.CreatedAt.Local().Format("15:04"), msg.SenderName, body, marker)
}

// wsBaseURL rewrites the gateway's http(s) URL to the ws(s) scheme.
func wsBaseURL(httpURL string) string {
	if strings.HasPrefix(httpURL, "https://") {
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	}
	return "ws" + strings.TrimPrefix(httpURL, "http")
}
