package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propchat/infrastructure/broker"
	"propchat/infrastructure/db"
	"propchat/infrastructure/lock"
	"propchat/infrastructure/ws"
	"propchat/internal/config"
	httpHandler "propchat/internal/delivery/http"
	"propchat/internal/delivery/websocket"
	"propchat/internal/notification"
	"propchat/internal/repository"
	"propchat/internal/repository/memory"
	"propchat/internal/usecase"
	"propchat/pkg/jwt"
	"propchat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	conversations repository.ConversationRepository
	invitations   repository.InvitationRepository
	friendships   repository.FriendshipRepository
	blocks        repository.BlockRepository
	messages      repository.MessageRepository
	residents     repository.ResidentRepository
	tx            usecase.Transactor
	close         func(ctx context.Context) error
}

func main() {
	if err := Run(); err != nil {
		logger.Global().Fatal("server stopped", zap.Error(err))
	}
}

func Run() error {
	cfg := config.Load()

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn("closing storage", zap.Error(err))
		}
	}()

	// Redis backs both the pair locks and cross-instance websocket fan-out.
	var (
		locker lock.Locker
		hub    ws.IHub
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		log.Info("using redis locks and hub", zap.String("addr", cfg.RedisAddr), zap.String("server_id", cfg.ServerID))
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, log)
		hub = ws.NewRedisHub(rdb, cfg.ServerID, log)
	} else {
		log.Info("using in-memory locks and hub (single server)")
		locker = lock.NewMemoryLocker()
		hub = ws.NewHub(log)
	}
	hub.SetOnClientUnregister(func(client *ws.UserClient) error {
		log.Debug("websocket session closed", zap.String("party_id", client.PartyId))
		return nil
	})
	go hub.Run(ctx)

	gateways := []notification.Gateway{notification.NewHubNotifier(hub)}
	if cfg.NATSURL != "" {
		nc, err := broker.Connect(ctx, broker.Config{URL: cfg.NATSURL, Name: "propchat-" + cfg.ServerID}, log)
		if err != nil {
			return err
		}
		defer nc.Close()
		gateways = append(gateways, notification.NewNATSNotifier(nc, cfg.NATSSubjectPrefix))
	}
	notifier := notification.NewAsync(notification.Multi(gateways...), cfg.NotifyTimeout, log)
	defer notifier.Wait()

	// Initialize use cases
	uow := usecase.NewUnitOfWork(locker, st.tx)
	parties := usecase.NewPartyResolver(st.residents, cfg.NameCacheTTL)
	views := usecase.NewViewAssembler(parties, log)
	friendshipUc := usecase.NewFriendshipUsecase(st.friendships, views)
	blockUc := usecase.NewBlockUsecase(st.blocks, friendshipUc, parties, views, uow, log)
	conversationUc := usecase.NewConversationUsecase(st.conversations, st.messages, views, uow, log)
	messageUc := usecase.NewMessageUseCase(st.messages, st.conversations, conversationUc, blockUc, notifier, log)
	invitationUc := usecase.NewInvitationUsecase(
		st.conversations,
		st.invitations,
		friendshipUc,
		blockUc,
		messageUc,
		parties,
		views,
		notifier,
		uow,
		cfg.InvitationTTL,
		log,
	)

	jwtManager := jwt.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	router := httpHandler.NewRouter(log, httpHandler.RouterOptions{
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})
	httpHandler.MapHttpRoutes(
		router,
		httpHandler.NewHttpHandler(invitationUc, blockUc, friendshipUc, conversationUc, messageUc, parties, log),
		websocket.NewWebsocketHandler(hub, jwtManager, parties, messageUc, conversationUc, log),
		httpHandler.NewAuthMiddleware(jwtManager, parties, log),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server is running", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.Env == "development" {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return &stores{
			conversations: memory.NewConversationRepository(),
			invitations:   memory.NewInvitationRepository(),
			friendships:   memory.NewFriendshipRepository(),
			blocks:        memory.NewBlockRepository(),
			messages:      memory.NewMessageRepository(),
			residents:     memory.NewResidentRepository(),
			close:         func(context.Context) error { return nil },
		}, nil
	}

	mongoDb, err := db.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTransactions, log)
	if err != nil {
		return nil, err
	}
	if err := repository.EnsureIndexes(ctx, *mongoDb.DB); err != nil {
		_ = mongoDb.Close(ctx)
		return nil, err
	}

	return &stores{
		conversations: repository.NewConversationRepository(*mongoDb.DB),
		invitations:   repository.NewInvitationRepository(*mongoDb.DB),
		friendships:   repository.NewFriendshipRepository(*mongoDb.DB),
		blocks:        repository.NewBlockRepository(*mongoDb.DB),
		messages:      repository.NewMessageRepository(*mongoDb.DB),
		residents:     repository.NewResidentRepository(*mongoDb.DB),
		tx:            mongoDb,
		close:         mongoDb.Close,
	}, nil
}
