package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phanxgames/sprig/mapeditor"
	"github.com/phanxgames/sprig/netsync"
)

type lockedPoster struct{ mu sync.Mutex }

func (p *lockedPoster) Post(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

func TestServerEndToEnd(t *testing.T) {
	cfg := mapeditor.DefaultServerConfig()
	cfg.ResourceDir = t.TempDir()
	log := zap.NewNop()

	app := NewApp(cfg, log)
	hub := NewHub(app, cfg, log)
	store, err := NewResources(cfg, log)
	require.NoError(t, err)
	scene, err := NewScene(app, hub, store, cfg)
	require.NoError(t, err)
	srv := NewServer(app, hub, scene, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Init(ctx))
	require.NoError(t, scene.Init(ctx))
	for _, tok := range scene.Bind(ctx, hub) {
		defer tok.Off()
	}
	go func() { _ = app.Loop.Run(ctx) }()
	ts := httptest.NewServer(srv.HTTP.Handler)
	defer ts.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + cfg.Path
	c, err := netsync.Dial(ctx, url, &lockedPoster{}, cfg.Net, log)
	require.NoError(t, err)
	defer c.Close()

	players := make(chan []mapeditor.PlayerData, 1)
	netsync.On(c.Router, mapeditor.EventPlayersInit, func(_ *netsync.Session, v []mapeditor.PlayerData) error {
		players <- v
		return nil
	})
	go func() { _ = c.Run(ctx) }()

	require.NoError(t, c.Emit(mapeditor.EventSessionInit, mapeditor.SessionInit{Username: "alice", Color: "#0af"}))
	select {
	case got := <-players:
		require.Len(t, got, 1)
		assert.Equal(t, "alice", got[0].Username)
		assert.Equal(t, c.ID(), got[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no players:init")
	}

	c.Close()
	require.Eventually(t, func() bool {
		done := make(chan int, 1)
		app.Loop.Post(func() { done <- scene.Players.Len() })
		select {
		case n := <-done:
			return n == 0
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}
