// Command-line probe client for the fish server. Speaks the JSON wire
// protocol over /ws; handy for poking a running server by hand.
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
)

type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func send(c *websocket.Conn, event string, payload interface{}) error {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		data = encoded
	}
	return c.WriteJSON(&message{Event: event, Data: data})
}

func main() {
	addr := "localhost:4002"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
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
			var msg message
			if err := c.ReadJSON(&msg); err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- %s: %s", msg.Event, string(msg.Data))
		}
	}()

	log.Println("Commands: login <token> [baseParam], ready, fire <angle>, catch <bulletId> <fishId...>, cannon <kind>, frozen, ping, exit")

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
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "login":
				if len(fields) < 2 {
					log.Println("usage: login <token> [baseParam]")
					continue
				}
				baseParam := int64(1)
				if len(fields) > 2 {
					baseParam, _ = strconv.ParseInt(fields[2], 10, 64)
				}
				err = send(c, "login", map[string]interface{}{"token": fields[1], "baseParam": baseParam})
			case "ready":
				err = send(c, "ready", nil)
			case "fire":
				angle := 1.0
				if len(fields) > 1 {
					angle, _ = strconv.ParseFloat(fields[1], 64)
				}
				err = send(c, "user_fire", map[string]interface{}{"cannonKind": 1, "angle": angle})
			case "catch":
				if len(fields) < 3 {
					log.Println("usage: catch <bulletId> <fishId...>")
					continue
				}
				bulletID, _ := strconv.ParseInt(fields[1], 10, 64)
				var fishIDs []int64
				for _, f := range fields[2:] {
					id, _ := strconv.ParseInt(f, 10, 64)
					fishIDs = append(fishIDs, id)
				}
				err = send(c, "catch_fish", map[string]interface{}{"bulletId": bulletID, "fishIds": fishIDs})
			case "cannon":
				if len(fields) < 2 {
					log.Println("usage: cannon <kind>")
					continue
				}
				kind, _ := strconv.Atoi(fields[1])
				err = send(c, "user_change_cannon", map[string]interface{}{"cannonKind": kind})
			case "frozen":
				err = send(c, "user_frozen", nil)
			case "ping":
				err = send(c, "game_ping", nil)
			case "exit":
				err = send(c, "exit", nil)
			default:
				log.Printf("unknown command %q", fields[0])
				continue
			}

			if err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> sent %s", fields[0])
		}
	}
}
