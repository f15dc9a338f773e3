package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

// 手動測試用的 websocket 客戶端.
// 用法:
//
//	go run ./cmd/wsclient -addr ws://localhost:3001/ws -user 1
//
// 連接後輸入 "<receiverId> <訊息內容>" 發送訊息，輸入 quit 離開。
func main() {
	addr := flag.String("addr", "ws://localhost:3001/ws", "websocket 服務地址")
	userID := flag.Int64("user", 0, "加入聊天的用戶 ID")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("連接失敗: %v", err)
	}
	defer conn.Close()

	fmt.Printf("已連接 %s\n", *addr)

	// 收到的事件直接印出
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				log.Printf("連接已關閉: %v", err)
				os.Exit(0)
			}
			fmt.Printf("<< %s\n", raw)
		}
	}()

	if *userID > 0 {
		send(conn, "user_join", map[string]interface{}{"userId": *userID})
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			fmt.Println("格式: <receiverId> <訊息內容>")
			continue
		}

		receiverID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			fmt.Println("receiverId 必須是數字")
			continue
		}

		send(conn, "send_message", map[string]interface{}{
			"senderId":   *userID,
			"receiverId": receiverID,
			"content":    parts[1],
		})
	}
}

func send(conn *websocket.Conn, event string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		log.Printf("序列化失敗: %v", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("發送失敗: %v", err)
	}
}
