package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/ebivilapaula/backend/apps/api/echo"
	"github.com/ebivilapaula/backend/core"
	"github.com/ebivilapaula/backend/core/child"
	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/report"
	"github.com/ebivilapaula/backend/core/user"
	emailsvc "github.com/ebivilapaula/backend/services/email"
	logsvc "github.com/ebivilapaula/backend/services/logger"
	notifysvc "github.com/ebivilapaula/backend/services/notify"
	"github.com/ebivilapaula/backend/storage/database"
	sqlxrepos "github.com/ebivilapaula/backend/storage/database/sqlx"
)

func main() {
	core.InitConf()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up validators
	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	var notifier core.PinNotifier
	if core.Conf.WhatsApp.Enabled {
		notifier = notifysvc.NewWhatsAppService(logger)
	} else {
		notifier = notifysvc.NewConsoleService(logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	chdRepo := sqlxrepos.NewChildRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc)
	chdSvc := child.NewService(chdRepo)
	ebiSvc := ebi.NewService(sqlxrepos.NewEbiRepository(db), usrRepo, chdRepo, notifier)
	rptSvc := report.NewService(sqlxrepos.NewReportRepository(db))

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	server := echoapi.NewServer(
		&echoapi.Options{
			Address:    core.Conf.Server.Address(),
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			UserSvc:    usrSvc,
			ChildSvc:   chdSvc,
			EbiSvc:     ebiSvc,
			ReportSvc:  rptSvc,
		},
	)
	server.Start()
}

func setUpDB() (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
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
