package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	reservationpb "github.com/Leganyst/reservation-platform/internal/api/reservation/v1"
	"github.com/Leganyst/reservation-platform/internal/availability"
	"github.com/Leganyst/reservation-platform/internal/config"
	"github.com/Leganyst/reservation-platform/internal/consumer"
	"github.com/Leganyst/reservation-platform/internal/db"
	"github.com/Leganyst/reservation-platform/internal/events"
	"github.com/Leganyst/reservation-platform/internal/httpapi"
	"github.com/Leganyst/reservation-platform/internal/identity"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/mq"
	"github.com/Leganyst/reservation-platform/internal/obs"
	"github.com/Leganyst/reservation-platform/internal/repository"
	"github.com/Leganyst/reservation-platform/internal/reservation"
	"github.com/Leganyst/reservation-platform/internal/service"
)

const paymentPrefetch = 16

func main() {
	// 1. Конфиг из env (.env подхватывается, если есть).
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	log, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("init tracer: %v", err)
	}

	// 2. Подключаемся к БД через GORM и мигрируем модели.
	gormDB, err := db.NewGormDB(&cfg.DB, log)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("sql DB: %v", err)
	}
	defer sqlDB.Close()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("time zone: %v", err)
	}

	// 3. Репозитории (реализации на GORM).
	slotRepo := repository.NewGormSlotRepository(gormDB)
	bookingRepo := repository.NewGormBookingRepository(gormDB)
	scheduleRepo := repository.NewGormScheduleRepository(gormDB)
	resourceRepo := repository.NewGormResourceRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)
	messageRepo := repository.NewGormMessageRepository(gormDB)

	// 4. Брокер: публикация событий броней. Без RABBIT_URL события не уходят.
	opts := []reservation.Option{reservation.WithLocation(loc)}
	if cfg.FutureStartOnly {
		opts = append(opts, reservation.WithFutureStartOnly())
	}
	var publisher *mq.Publisher
	if cfg.RabbitURL != "" {
		publisher, err = mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			log.Fatalf("init publisher: %v", err)
		}
		defer publisher.Close()
		opts = append(opts, reservation.WithPublisher(publisher))
	}

	// 5. Ядро.
	index := availability.NewIndex(slotRepo, log)
	engine := reservation.NewEngine(bookingRepo, index, resourceRepo, eventRepo, log, opts...)
	query := reservation.NewQuery(bookingRepo, index, engine)
	catalog := reservation.NewCatalog(resourceRepo, scheduleRepo, log)

	// 6. Приём результатов платежей.
	if cfg.RabbitURL != "" {
		cons, err := mq.NewConsumer(cfg.RabbitURL, cfg.PaymentExchange, cfg.PaymentQueue, events.PaymentKeys, paymentPrefetch)
		if err != nil {
			log.Fatalf("init consumer: %v", err)
		}
		defer cons.Close()
		deliveries, err := cons.Deliveries(ctx)
		if err != nil {
			log.Fatalf("consume %s: %v", cfg.PaymentQueue, err)
		}
		go consumer.NewPaymentHandler(engine, messageRepo, log).Run(ctx, deliveries)
		log.WithField("queue", cfg.PaymentQueue).Info("payment consumer started")
	}

	var tokens *identity.Tokens
	if cfg.JWTSecret != "" {
		tokens = identity.NewTokens(cfg.JWTSecret)
	}

	// 7. gRPC-сервер. Identity-перехватчик идёт первым, чтобы лог видел пользователя.
	var verifier service.TokenVerifier
	if tokens != nil {
		verifier = tokens
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		service.IdentityInterceptor(verifier),
		service.LoggingInterceptor(log),
	))
	reservationpb.RegisterReservationServiceServer(grpcServer, service.NewReservationService(engine, query, log))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(reservationpb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen %s: %v", cfg.GRPCAddr, err)
	}
	go func() {
		log.WithField("addr", cfg.GRPCAddr).Info("core gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	// 8. HTTP API; без JWT_SECRET не поднимается.
	var httpServer *http.Server
	if tokens != nil {
		gin.SetMode(gin.ReleaseMode)
		limiter := httpapi.NewUserLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.NewServer(engine, query, catalog, tokens, limiter, log).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("http serve: %v", err)
			}
		}()
	} else {
		log.Warn("JWT_SECRET is empty, HTTP API disabled")
	}

	// 9. Грейсфул-шатдаун по сигналу.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down...")
	healthSrv.Shutdown()
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	}
	grpcServer.GracefulStop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracer shutdown")
	}
}
