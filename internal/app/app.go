// Package app wires config into a running ledger: store, side effects and
// usecases. Both cmd/api and cmd/ledgerctl start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"microloan-ledger/internal/adapter/mirror"
	"microloan-ledger/internal/adapter/notify"
	"microloan-ledger/internal/adapter/repository/jsonfile"
	mysqlrepo "microloan-ledger/internal/adapter/repository/mysql"
	"microloan-ledger/internal/adapter/repository/serial"
	"microloan-ledger/internal/config"
	"microloan-ledger/internal/domain/uow"
	"microloan-ledger/internal/infrastructure/db"
	"microloan-ledger/internal/usecase/approval"
	"microloan-ledger/internal/usecase/funding"
	"microloan-ledger/internal/usecase/loan"
	"microloan-ledger/internal/usecase/stats"
	"microloan-ledger/internal/usecase/user"
)

type App struct {
	Config *config.Config
	Repos  uow.Repos

	Loans    *loan.Usecase
	Funding  *funding.Usecase
	Approval *approval.Usecase
	Stats    *stats.Usecase
	Users    *user.Usecase

	Dispatcher *notify.Dispatcher
	// Mirror is nil when no Multichain node is configured.
	Mirror *mirror.MultichainClient

	closers []func() error
}

// New opens the configured store and side-effect transports.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg}

	tx, err := a.openStore(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var n notify.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		an, conn, err := notify.DialAMQP(cfg.AMQPURL, cfg.NotifyQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		n = an
		log.Printf("app: notifications via amqp queue=%s", cfg.NotifyQueue)
	}

	var m mirror.Publisher = mirror.Nop{}
	if cfg.MultichainHost != "" {
		a.Mirror = mirror.NewMultichainClient(mirror.MultichainConfig{
			Host:     cfg.MultichainHost,
			Port:     cfg.MultichainPort,
			User:     cfg.MultichainUser,
			Password: cfg.MultichainPassword,
			Stream:   cfg.MultichainStream,
			Timeout:  cfg.SideEffectTimeout(),
		})
		m = a.Mirror
		log.Printf("app: ledger mirror host=%s stream=%s", cfg.MultichainHost, cfg.MultichainStream)
	}

	a.wire(tx, notify.NewDispatcher(n, m, cfg.SideEffectTimeout()))
	return a, nil
}

// NewWithRepos builds an App over already-open collections, with writers
// serialised in this process only.
func NewWithRepos(cfg *config.Config, repos uow.Repos, d *notify.Dispatcher) *App {
	if d == nil {
		d = notify.NewDispatcher(nil, nil, cfg.SideEffectTimeout())
	}
	a := &App{Config: cfg}
	a.wire(serial.New(repos), d)
	return a
}

func (a *App) wire(tx uow.UnitOfWork, d *notify.Dispatcher) {
	repos := tx.Repos()
	a.Repos = repos
	a.Dispatcher = d
	a.Loans = loan.NewUsecase(tx, d)
	a.Funding = funding.NewUsecase(tx, d, a.Config.Rate())
	a.Approval = approval.NewUsecase(tx, d)
	a.Stats = stats.NewUsecase(repos)
	a.Users = user.NewUsecase(tx, a.Config.LenderBalance())
}

// openStore: the JSON store gets a process-local writer lock; the SQL
// drivers run each write in a database transaction.
func (a *App) openStore(cfg *config.Config) (uow.UnitOfWork, error) {
	switch cfg.StoreDriver {
	case config.DriverJSON:
		log.Printf("app: json store dir=%s", cfg.DataDir)
		return serial.New(uow.Repos{
			Loans: jsonfile.NewLoanRepository(cfg.DataDir),
			Users: jsonfile.NewUserRepository(cfg.DataDir),
		}), nil
	case config.DriverSQLite:
		g, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return a.gormUoW(g)
	case config.DriverMySQL:
		g, err := db.OpenGorm(cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		return a.gormUoW(g)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func (a *App) gormUoW(g *gorm.DB) (uow.UnitOfWork, error) {
	sqlDB, err := g.DB()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sqlDB.Close)
	if err := mysqlrepo.Migrate(g); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return mysqlrepo.NewUoW(g), nil
}

// Close waits for in-flight side effects, then releases connections.
func (a *App) Close() error {
	if a.Dispatcher != nil {
		a.Dispatcher.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
