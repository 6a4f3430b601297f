package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialTestConnection stands up a websocket echo sink and returns a started
// Connection wired to it.
func dialTestConnection(t *testing.T) *Connection {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	conn := NewConnection("u1", ws)
	conn.Start()
	return conn
}

func TestSend_AfterCloseReturnsError(t *testing.T) {
	conn := dialTestConnection(t)

	require.NoError(t, conn.Send([]byte(`{"type":"connected"}`)))

	conn.Close(websocket.CloseNormalClosure, "done")
	assert.Error(t, conn.Send([]byte("late")))
	assert.Error(t, conn.SendJSON(map[string]string{"type": "late"}))
}

func TestSend_ConcurrentWithCloseDoesNotPanic(t *testing.T) {
	conn := dialTestConnection(t)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = conn.Send([]byte("payload"))
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		conn.Close(websocket.CloseGoingAway, "replaced")
	}()

	close(start)
	wg.Wait()

	assert.Error(t, conn.Send([]byte("after")))
}

func TestClose_IsIdempotent(t *testing.T) {
	conn := dialTestConnection(t)

	conn.Close(websocket.CloseNormalClosure, "done")
	conn.Close(websocket.CloseNormalClosure, "done")
}
