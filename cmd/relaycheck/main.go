package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/chess-relay/pkg/relaydto"
	"github.com/valyala/fasthttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// relaycheck is a smoke test against a running relay: it checks /healthz, then opens a
// websocket session, creates a room and asks whoami.
func main() {
	baseURL := strings.TrimRight(os.Getenv("RELAY_URL"), "/")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	status, body, err := fasthttp.GetTimeout(nil, baseURL+"/healthz", 5*time.Second)
	if err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz status=%d body=%s", status, strings.TrimSpace(string(body)))
	}

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("ws dial error: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	for i, ev := range []string{relaydto.EventCreate, relaydto.EventWhoami} {
		ack := int64(i + 1)
		if err := wsjson.Write(ctx, conn, relaydto.Request{Event: ev, Ack: &ack}); err != nil {
			log.Fatalf("write %s: %v", ev, err)
		}
		for {
			var f struct {
				Event string          `json:"event"`
				Ack   *int64          `json:"ack"`
				Data  json.RawMessage `json:"data"`
			}
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				log.Fatalf("read: %v", err)
			}
			fmt.Printf("%-14s %s\n", f.Event, f.Data)
			if f.Event == relaydto.EventAck && f.Ack != nil && *f.Ack == ack {
				break
			}
		}
	}
}
