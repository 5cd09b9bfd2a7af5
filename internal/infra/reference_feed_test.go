package infra

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func TestReferenceFeed_ReceivesPrice(t *testing.T) {
	server := createMockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"tick","symbol":"A-B","price":1.5}`))
		time.Sleep(200 * time.Millisecond)
	})
	defer server.Close()

	feed := NewReferenceFeed(httpToWS(server.URL), "A-B")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	feed.Start(ctx)
	defer feed.Stop()

	deadline := time.After(500 * time.Millisecond)
	for {
		if price, known := feed.Price(); known {
			if !price.Equal(decimal.NewFromFloat(1.5)) {
				t.Errorf("Expected 1.5, got %s", price)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("Feed never received a price")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestReferenceFeed_SubscribesOnConnect(t *testing.T) {
	received := make(chan []byte, 1)
	server := createMockWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			received <- msg
		}
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	feed := NewReferenceFeed(httpToWS(server.URL), "A-B")
	feed.Start(context.Background())
	defer feed.Stop()

	select {
	case msg := <-received:
		if string(msg) != `{"op":"subscribe","symbol":"A-B"}` {
			t.Errorf("Unexpected subscribe payload: %s", msg)
		}
	case <-time.After(time.Second):
		t.Error("Server never received subscribe message")
	}
}

func TestReferenceFeed_DropsMalformed(t *testing.T) {
	feed := NewReferenceFeed("ws://unused", "A-B")

	ctx := context.Background()
	feed.OnMessage(ctx, []byte(`not json`))
	feed.OnMessage(ctx, []byte(`{"price":-1}`))
	feed.OnMessage(ctx, []byte(`{"symbol":"X-Y","price":9.9}`))

	if _, known := feed.Price(); known {
		t.Error("Expected no price from malformed or mismatched messages")
	}

	feed.OnMessage(ctx, []byte(`{"symbol":"A-B","price":2.5}`))
	price, known := feed.Price()
	if !known || !price.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("Expected 2.5, got %s (known=%v)", price, known)
	}
}
