package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/tmdiniz/atende/apps/api/echo"
	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/dashboard"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/nps"
	"github.com/tmdiniz/atende/core/user"
	emailsvc "github.com/tmdiniz/atende/services/email"
	logsvc "github.com/tmdiniz/atende/services/logger"
	"github.com/tmdiniz/atende/storage/database"
	sqlxrepos "github.com/tmdiniz/atende/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	cltRepo := sqlxrepos.NewClientRepository(db)
	formRepo := sqlxrepos.NewFormRepository(db)
	attRepo := sqlxrepos.NewAttendanceRepository(db)
	npsRepo := sqlxrepos.NewNPSRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	cltSvc := client.NewService(cltRepo)
	formSvc := form.NewService(formRepo)
	attSvc := attendance.NewService(attRepo, cltRepo, formRepo, mailSvc, conf)
	npsSvc := nps.NewService(npsRepo, attRepo, cltRepo)
	dashSvc := dashboard.NewService(cltRepo, formRepo, attRepo, npsSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	client.InitValidators(validate, translator)
	form.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:       conf.Server.Address(),
		UserSvc:       usrSvc,
		ClientSvc:     cltSvc,
		FormSvc:       formSvc,
		AttendanceSvc: attSvc,
		NPSSvc:        npsSvc,
		DashboardSvc:  dashSvc,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		SignalShutdown: func() {
			shutdown <- syscall.SIGTERM
		},
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
