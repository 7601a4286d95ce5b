package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"stocknet/internal/config"
	"stocknet/internal/handler"
	"stocknet/internal/infra/db"
	"stocknet/internal/infra/logger"
	"stocknet/internal/infra/messaging"
	infraRepo "stocknet/internal/infra/repository"
	"stocknet/internal/infra/repository/memory"
	repo "stocknet/internal/repository"
	"stocknet/internal/server"
	"stocknet/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

// 永続化まわり一式
type storage struct {
	tx         repo.TransactionManager
	warehouses repo.WarehouseRepository
	inventory  repo.InventoryRepository
	transfers  repo.TransferRequestRepository
	debts      repo.DebtOrderRepository
	auditLogs  repo.AuditLogRepository
	catalog    repo.ProductCatalog
}

type publisher interface {
	usecase.EventPublisher
	Close() error
}

func main() {
	//.envは無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(cfg, log)
	if err != nil {
		log.Fatal("storage init failed", zap.Error(err))
	}

	pub, err := openPublisher(cfg, log)
	if err != nil {
		log.Fatal("rabbitmq init failed", zap.Error(err))
	}
	defer pub.Close()

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := usecase.SystemClock{}

	//MAIN倉庫は起動時に1回だけ読んで注入する
	warehouseUC := usecase.NewWarehouseUsecase(st.warehouses, log)
	mainWarehouse, err := warehouseUC.LoadMainWarehouse(ctx, cfg.BootstrapMainWarehouse)
	if err != nil {
		log.Fatal("main warehouse lookup failed", zap.Error(err))
	}
	if mainWarehouse == nil {
		log.Error("main warehouse is not configured; fulfillment endpoints will fail")
	}
	allocator := usecase.NewSourceAllocator(mainWarehouse)

	//Usecase生成
	debtUC := usecase.NewDebtOrderUsecase(st.tx, st.debts, allocator, pub, idGen, clock, log)
	fulfillUC := usecase.NewFulfillmentUsecase(st.tx, allocator, debtUC, pub, idGen, clock, log)
	availabilityUC := usecase.NewAvailabilityUsecase(st.transfers, st.inventory, st.catalog, allocator, log)
	transferUC := usecase.NewTransferRequestUsecase(
		st.tx, st.transfers, st.warehouses, st.inventory, st.catalog,
		fulfillUC, pub, idGen, clock, log, cfg.MaxItemQuantity,
	)
	inventoryUC := usecase.NewInventoryUsecase(st.tx, st.inventory, st.catalog, allocator, debtUC, clock, log)
	auditUC := usecase.NewAuditLogUsecase(st.auditLogs)

	//Handler生成
	e := server.New(cfg, log, server.Handlers{
		TransferRequests: handler.NewTransferRequestHandler(transferUC, availabilityUC),
		DebtOrders:       handler.NewDebtOrderHandler(debtUC),
		Inventory:        handler.NewInventoryHandler(inventoryUC, auditUC),
		Warehouses:       handler.NewWarehouseHandler(warehouseUC),
	})

	//Server起動
	if err := server.Start(ctx, e, cfg.Addr(), log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func openStorage(cfg config.Config, log *zap.Logger) (storage, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		s := memory.NewStore()
		if cfg.MemorySeedProducts != "" {
			products, err := s.LoadProductsFile(cfg.MemorySeedProducts)
			if err != nil {
				return storage{}, err
			}
			log.Info("product catalog seeded", zap.Int("count", len(products)), zap.String("file", cfg.MemorySeedProducts))
		} else {
			log.Warn("MEMORY_SEED_PRODUCTS not set; product catalog is empty")
		}
		return storage{
			tx:         s,
			warehouses: s.Warehouses(),
			inventory:  s.Inventory(),
			transfers:  s.TransferRequests(),
			debts:      s.DebtOrders(),
			auditLogs:  s.AuditLogs(),
			catalog:    s.Products(),
		}, nil
	}

	//DB接続
	gormDB, err := db.Connect(cfg.DSN(), cfg.GoEnv == "dev")
	if err != nil {
		return storage{}, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return storage{}, err
	}

	//Repository（GORM実装）生成
	return storage{
		tx:         infraRepo.NewTxManagerGorm(gormDB),
		warehouses: infraRepo.NewWarehouseGormRepository(gormDB),
		inventory:  infraRepo.NewInventoryGormRepository(gormDB),
		transfers:  infraRepo.NewTransferRequestGormRepository(gormDB),
		debts:      infraRepo.NewDebtOrderGormRepository(gormDB),
		auditLogs:  infraRepo.NewAuditLogGormRepository(gormDB),
		catalog:    infraRepo.NewProductCatalogGorm(gormDB),
	}, nil
}

func openPublisher(cfg config.Config, log *zap.Logger) (publisher, error) {
	if cfg.RabbitMQURL == "" {
		log.Info("RABBITMQ_URL not set; events are not published")
		return messaging.NewNoopPublisher(log), nil
	}
	return messaging.DialRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
}
