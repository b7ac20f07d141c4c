package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoapi "github.com/seekmycourse/backend/apps/api/echo"
	"github.com/seekmycourse/backend/core"
	"github.com/seekmycourse/backend/core/course"
	"github.com/seekmycourse/backend/core/user"
	aisvc "github.com/seekmycourse/backend/services/ai"
	emailsvc "github.com/seekmycourse/backend/services/email"
	imagesvc "github.com/seekmycourse/backend/services/image"
	logsvc "github.com/seekmycourse/backend/services/logger"
	pdfsvc "github.com/seekmycourse/backend/services/pdf"
	smssvc "github.com/seekmycourse/backend/services/sms"
	videosvc "github.com/seekmycourse/backend/services/video"
	"github.com/seekmycourse/backend/storage/database"
	sqlxrepos "github.com/seekmycourse/backend/storage/database/sqlx"
)

func main() {
	// set up logger
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()
	if err = database.Migrate(db); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(
		sqlxrepos.NewUserRepository(db),
		mailSvc,
		smssvc.NewTwilioVerifyService(),
		logger,
	)
	crsSvc := course.NewService(
		sqlxrepos.NewCourseRepository(db),
		aisvc.NewOpenAIService(logger),
		videosvc.NewYoutubeService(),
		imagesvc.NewPexelsService(),
		pdfsvc.NewGotenbergService(),
		usrSvc,
		logger,
	)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:   fmt.Sprintf("%s:%d", core.Conf.Server.Host, core.Conf.Server.Port),
		Logger:    logger,
		UserSvc:   usrSvc,
		CourseSvc: crsSvc,
	})
	logger.Info(fmt.Sprintf("%s API starting : version %q", core.Conf.AppName, core.Conf.Build))
	go app.Start()

	// block until the listener fails or a shutdown is requested, either by
	// the OS or by the API catching a fatal infrastructure error
	select {
	case err = <-app.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-app.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err = app.Stop(ctx); err != nil {
			logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
