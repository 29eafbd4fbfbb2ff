package main

import (
	"bufio"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/guessgame/network"
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	return c.WriteMessage(websocket.BinaryMessage, network.EncodePacket(msgID, data))
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			log.Printf("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
		}
	}()

	name := "guest"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	var userID int64
	if len(os.Args) > 2 {
		userID, _ = strconv.ParseInt(os.Args[2], 10, 64)
	}

	log.Println("Commands: create | join [room_id] | start | leave | or a number 1-100 to guess")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}

			fields := strings.Fields(text)
			switch fields[0] {
			case "create":
				data, _ := json.Marshal(map[string]interface{}{"player_name": name, "user_id": userID})
				if err := send(c, network.MsgTypeCreateRoom, data); err != nil {
					log.Println("Write error:", err)
					return
				}
			case "join":
				req := map[string]interface{}{"player_name": name, "user_id": userID}
				if len(fields) > 1 {
					req["room_id"] = fields[1]
				}
				data, _ := json.Marshal(req)
				if err := send(c, network.MsgTypeJoinRoom, data); err != nil {
					log.Println("Write error:", err)
					return
				}
			case "start":
				if err := send(c, network.MsgTypeStartGame, []byte{}); err != nil {
					log.Println("Write error:", err)
					return
				}
			case "leave":
				if err := send(c, network.MsgTypeLeaveRoom, []byte{}); err != nil {
					log.Println("Write error:", err)
					return
				}
			default:
				guess, err := strconv.Atoi(fields[0])
				if err != nil {
					log.Printf("Unknown command: %s", text)
					continue
				}
				data, _ := json.Marshal(map[string]int{"guess": guess})
				if err := send(c, network.MsgTypeGuess, data); err != nil {
					log.Println("Write error:", err)
					return
				}
			}
		}
	}
}
