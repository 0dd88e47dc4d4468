package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	dg "github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/studyhallbot/studyhall"
	"github.com/studyhallbot/studyhall/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	RepoURL = "https://github.com/studyhallbot/studyhall"
	Version = "0.0.0"
)

func main() {
	// logger
	log.SetLevel(log.DebugLevel)
	log.SetReportCaller(true)
	topCtx, topCtxC := context.WithCancel(context.Background())
	initTimeout, initTimeoutC := context.WithTimeout(topCtx, 10*time.Second)

	// config
	cfg, err := studyhall.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// db
	log.Info("opening db", "url", cfg.DatabaseURL)
	db, err := sql.Open("sqlite", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed database open", "err", err)
	}
	panicif(db.Ping())
	panicif(runMigrations(db))
	defer db.Close() //nolint

	tx, dbGetter := txStdLib.NewTransactor(
		db,
		txStdLib.NestedTransactionsSavepoints,
	)

	groupRepo := sqlite.NewGroupRepo(dbGetter, *log.Default())
	managerRepo := sqlite.NewManagerRepo(dbGetter, *log.Default())
	taskRepo := sqlite.NewTaskRepo(dbGetter, *log.Default())

	// set up discord cl
	cl, err := dg.New("Bot " + cfg.BotToken)
	if err != nil {
		log.Fatal(err)
	}
	cl.ShouldRetryOnRateLimit = false
	cl.Client = &http.Client{Timeout: (20 * time.Second)}
	cl.UserAgent = fmt.Sprintf("%s (%s, v%s)", cfg.BotName, RepoURL, Version)
	cl.Identify.Intents |= dg.IntentGuildVoiceStates | dg.IntentGuildMembers

	gateway := NewDiscordGateway(cl)
	resolver := NewPermissionResolver(managerRepo)

	voiceMgr := NewVoiceChannelManager(gateway, groupRepo)
	panicif(voiceMgr.Restore(initTimeout))

	pomodoroMgr := NewPomodoroManager(topCtx, gateway)
	checkinMgr := NewCheckinManager(topCtx, gateway)
	groupMgr := NewGroupManager(groupRepo, resolver, gateway, voiceMgr, pomodoroMgr, tx)

	bot := NewBot(topCtx, checkinMgr, pomodoroMgr, groupMgr, voiceMgr, resolver, groupRepo, taskRepo)

	// discord event hooks
	cl.AddHandler(bot.HandleInteraction)
	cl.AddHandler(bot.HandleVoiceStateUpdate)

	// open connection
	if err := cl.Open(); err != nil {
		log.Fatal("Error opening connection", "err", err)
	}
	log.Info(cfg.BotName + " running. Press CTRL-C to exit.")

	// init done
	initTimeoutC()

	// graceful shutdown
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	log.Info("terminating " + cfg.BotName)
	topCtxC()
	shutdownTimeout, shutdownTimeoutC := context.WithTimeout(context.Background(), time.Minute)
	go func() {
		checkinMgr.Shutdown()
		pomodoroMgr.Shutdown()
		if err := cl.Close(); err != nil {
			log.Error(err)
		}
		shutdownTimeoutC()
	}()
	<-shutdownTimeout.Done()
	if shutdownTimeout.Err() != context.Canceled {
		log.Error("failed to shut down gracefully", "err", shutdownTimeout.Err())
	}
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func panicif(err error) {
	if err != nil {
		panic(err)
	}
}
