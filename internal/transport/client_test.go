package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/submux/internal/model"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:          url,
		PingInterval: 15 * time.Second,
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
}

func TestClient_SendEncodesEnvelope(t *testing.T) {
	received := make(chan []byte, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- data
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	msg := &model.Message{
		Type:        model.TypeMarketData,
		TxID:        7,
		IsSubscribe: true,
		DataType:    model.DataTrades,
		SecurityID:  model.SecurityID{Code: "SBER", Board: "TQBR"},
	}
	if err := client.Send(msg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case data := <-received:
		var decoded model.Message
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("server received invalid JSON: %v", err)
		}
		if decoded.Type != model.TypeMarketData || decoded.TxID != 7 || decoded.SecurityID.Code != "SBER" {
			t.Errorf("decoded = %+v", decoded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive the message")
	}
}

func TestClient_ReceiveDecodesAndStamps(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		data, _ := json.Marshal(&model.Message{
			Type:         model.TypeSecurityLookupResult,
			OriginalTxID: 3,
		})
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	select {
	case tm := <-client.Messages():
		if tm.Msg.Type != model.TypeSecurityLookupResult || tm.Msg.OriginalTxID != 3 {
			t.Errorf("message = %+v", tm.Msg)
		}
		if tm.Msg.LocalTime.IsZero() {
			t.Error("LocalTime not stamped on receive")
		}
		if tm.ReceivedAt.IsZero() {
			t.Error("ReceivedAt not stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testClientConfig("ws://127.0.0.1:1"), nil)

	if err := client.Send(&model.Message{Type: model.TypeReset}); err != ErrNotConnected {
		t.Errorf("Send() = %v, want ErrNotConnected", err)
	}
}

func TestVenue_NextTxIDMonotonic(t *testing.T) {
	venue := NewVenue(VenueConfig{})

	prev := model.TxID(0)
	for i := 0; i < 100; i++ {
		tx := venue.NextTxID()
		if tx <= prev {
			t.Fatalf("NextTxID() = %d after %d, want monotonic", tx, prev)
		}
		prev = tx
	}
}

func TestVenue_SupportsOut(t *testing.T) {
	venue := NewVenue(VenueConfig{
		SupportedResults: []model.MessageType{model.TypeSecurityLookupResult},
	})

	if !venue.SupportsOut(model.TypeSecurityLookupResult) {
		t.Error("security_lookup_result should be supported")
	}
	if venue.SupportsOut(model.TypeBoardLookupResult) {
		t.Error("board_lookup_result should not be supported")
	}
}

func TestVenue_SendWithoutClient(t *testing.T) {
	venue := NewVenue(VenueConfig{})

	if err := venue.SendIn(&model.Message{Type: model.TypeReset}); err != ErrNotConnected {
		t.Errorf("SendIn() = %v, want ErrNotConnected", err)
	}
}
