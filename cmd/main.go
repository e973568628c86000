package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-relay/config"
	"github.com/cwrk-planet/chat-relay/internal/chat"
	"github.com/cwrk-planet/chat-relay/internal/memstore"
	"github.com/cwrk-planet/chat-relay/internal/postgres"
	"github.com/cwrk-planet/chat-relay/internal/redislog"
	"github.com/cwrk-planet/chat-relay/internal/repository"
	"github.com/cwrk-planet/chat-relay/internal/service"
	grpcx "github.com/cwrk-planet/chat-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-relay/internal/transport/http"
	"github.com/cwrk-planet/chat-relay/internal/transport/ws"
	"github.com/cwrk-planet/chat-relay/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
)

const healthInterval = 15 * time.Second

type stores struct {
	members  repository.MemberRepository
	rooms    repository.RoomRepository
	messages repository.MessageRepository
	probes   []grpcx.Probe
	closers  []func()
}

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(cfg.LoggerConfig())
	slog.Info("starting chat-relay",
		slog.String("env", cfg.Logging.Env),
		slog.String("version", cfg.Logging.Version),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("message_log", cfg.MessageLog.Backend))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("chat-relay failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range st.closers {
			c()
		}
	}()

	// --- services ---
	memberSvc := service.NewMemberService(st.members, cfg.BcryptConfig())
	roomSvc := service.NewRoomService(st.rooms, st.members)

	// --- chat core ---
	chatLog := logger.Component("chat")
	sessions := chat.NewSessionRegistry()
	presence := chat.NewMembershipTable()
	chatSvc := service.NewChatService(st.messages, roomSvc, st.members, presence)
	dispatcher := chat.NewDispatcher(chat.Deps{
		Sessions:      sessions,
		Members:       presence,
		Fanout:        chat.NewFanout(sessions, presence, chatLog),
		MemberDir:     memberSvc,
		RoomDir:       roomSvc,
		MessageLog:    chatSvc,
		SelfLabel:     cfg.Chat.SelfLabel,
		AppendTimeout: cfg.MessageLog.AppendTimeout,
		Log:           chatLog,
	})
	gateway := chat.NewGateway(sessions, dispatcher, chatLog)

	// --- WS ---
	wsServer := ws.NewServer(gateway, ws.Config{
		SendQueueSize:  cfg.Chat.SendQueueSize,
		MaxMessageSize: cfg.Chat.MaxMessageSize,
		PingInterval:   cfg.Chat.PingInterval,
		WriteTimeout:   cfg.Chat.WriteTimeout,
		AllowedOrigins: cfg.HTTP.CORSOrigins,
	}, logger.Component("ws"))

	// --- HTTP ---
	v := validator.New()
	router := httpx.NewRouter(httpx.Deps{
		Chat:        httpx.NewChatHandler(roomSvc, chatSvc, v),
		Members:     httpx.NewMemberHandler(memberSvc, v),
		WS:          wsServer.HandleWS,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	httpSrv := httpx.New(httpx.Config{Addr: cfg.HTTP.Addr, ShutdownTimeout: cfg.HTTP.ShutdownTimeout}, router)

	// --- gRPC health ---
	grpcSrv := grpcx.NewServer(logger.Component("grpc"))
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	// --- run ---
	grpcErr := make(chan error, 1)
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			grpcErr <- fmt.Errorf("grpc: %w", err)
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go grpcSrv.Watch(watchCtx, healthInterval, st.probes...)

	httpCtx, stopHTTP := context.WithCancel(context.Background())
	defer stopHTTP()
	httpDone := make(chan error, 1)
	go func() {
		slog.Info("http listen", slog.String("addr", cfg.HTTP.Addr))
		httpDone <- httpSrv.Run(httpCtx)
	}()

	var runErr error
	httpExited := false
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
	case err := <-grpcErr:
		runErr = err
	case err := <-httpDone:
		httpExited = true
		if err != nil {
			runErr = fmt.Errorf("http: %w", err)
		}
	}

	// --- graceful shutdown ---
	// Order: health off, HTTP drained, sockets closed, gRPC stopped; the
	// deferred store closers run last.
	stopWatch()
	grpcSrv.SetServing(false)

	stopHTTP()
	if !httpExited {
		if err := <-httpDone; err != nil {
			slog.Warn("http shutdown", slog.Any("err", err))
		}
	}

	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shCancel()
	if err := wsServer.Shutdown(shCtx); err != nil {
		slog.Warn("ws shutdown", slog.Any("err", err))
	}
	grpcSrv.Stop()
	return runErr
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{}

	var pool *pgxpool.Pool
	if cfg.Storage.Backend == "postgres" || cfg.MessageLog.Backend == "postgres" {
		p, err := postgres.NewPool(ctx, cfg.PostgresConfig())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		pool = p
		st.closers = append(st.closers, pool.Close)
		st.probes = append(st.probes, func(ctx context.Context) error { return postgres.Ping(ctx, pool) })

		if cfg.Storage.EnsureSchema {
			if err := postgres.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("postgres schema: %w", err)
			}
		}
	}

	switch cfg.Storage.Backend {
	case "postgres":
		st.members = postgres.NewMemberRepo(pool)
		st.rooms = postgres.NewRoomRepo(pool)
	default:
		st.members = memstore.NewMemberStore()
		st.rooms = memstore.NewRoomStore()
	}

	switch cfg.MessageLog.Backend {
	case "postgres":
		st.messages = postgres.NewMessageRepo(pool)
	case "redis":
		client, err := redislog.Connect(ctx, cfg.RedisConfig())
		if err != nil {
			for _, c := range st.closers {
				c()
			}
			return nil, fmt.Errorf("redis: %w", err)
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.probes = append(st.probes, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		st.messages = redislog.NewMessageLog(client, cfg.RedisConfig())
	default:
		st.messages = memstore.NewMessageStore()
	}
	return st, nil
}
