// Command brokerd is a minimal websocket front end over the broker core,
// demonstrating end-to-end wiring: accept a connection, decode frames,
// hand each to the Dispatcher, and, when the frame sets WaitResponse,
// write back a result frame.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	brokercfg "github.com/chris-alexander-pop/system-design-library/pkg/broker/config"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/dispatch"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/persist"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/queue"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/registry"
	eventbus "github.com/chris-alexander-pop/system-design-library/pkg/events/adapters/memory"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	logger.Init(logger.Config{Level: "INFO", Format: "JSON"})

	cfg, err := brokercfg.Load()
	if err != nil {
		logger.L().Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := persist.New(cfg.RoutersFilePath, cfg.QueuesFilePath)
	bus := eventbus.New()

	queues := registry.NewQueues(queue.Deps{
		IDGen:    message.NewUUIDGenerator(),
		EventBus: bus,
	}, store)
	routers := registry.NewRouters(store)
	channels := registry.NewChannels()
	clients := registry.NewClients()

	clients.OnDisconnect(func(ref message.ClientRef) {
		for _, q := range queues.List("") {
			q.Leave(ref)
		}
		for _, ch := range channels.List("") {
			ch.Unsubscribe(ref)
		}
	})

	for _, def := range store.LoadQueues() {
		qType, ok := queue.ParseType(def.Type)
		if !ok {
			logger.L().Warn("brokerd: skipping malformed persisted queue", "name", def.Name, "type", def.Type)
			continue
		}
		opts := cfg.DefaultQueueOptions()
		if _, err := queues.Create(def.Name, def.Topic, qType, opts); err != nil {
			logger.L().Warn("brokerd: failed to restore queue", "name", def.Name, "error", err)
		}
	}

	d := dispatch.New(ctx, dispatch.Deps{
		Queues:              queues,
		Routers:             routers,
		Channels:            channels,
		Clients:             clients,
		DefaultQueueOptions: cfg.DefaultQueueOptions(),
		WorkerPoolSize:      cfg.DispatchWorkerPoolSize,
		QueueDepth:          cfg.DispatchQueueDepth,
	})
	defer d.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler(d, clients))

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		logger.L().Info("brokerd: listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Error("brokerd: serve failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.L().Info("brokerd: shutting down")
	_ = srv.Shutdown(context.Background())
}

func wsHandler(d *dispatch.Dispatcher, clients *registry.Clients) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.L().Warn("brokerd: upgrade failed", "error", err)
			return
		}
		conn := newWSConn(socket)
		cl := &client.Client{
			Ref:        message.ClientRef{ID: uuid.NewString(), Type: "ws"},
			Connection: conn,
		}
		clients.Add(cl)
		defer func() {
			conn.markClosed()
			clients.Disconnect(cl.Ref)
			_ = socket.Close()
		}()

		for {
			_, raw, err := socket.ReadMessage()
			if err != nil {
				return
			}
			m, err := decodeFrame(raw)
			if err != nil {
				logger.L().Warn("brokerd: malformed frame", "client", cl.Ref.ID, "error", err)
				continue
			}
			res, err := d.Dispatch(r.Context(), cl, m)
			if m.WaitResponse {
				rf := resultFrame{ID: m.ID, Result: res.String()}
				if err != nil {
					rf.Error = err.Error()
				}
				if raw, mErr := encodeResultFrame(rf); mErr == nil {
					_ = conn.sendRaw(raw)
				}
			}
		}
	}
}
