package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldreport/internal/audit"
	"fieldreport/internal/auth"
	"fieldreport/internal/db"
	"fieldreport/internal/images"
	"fieldreport/internal/notify"
	"fieldreport/internal/reminder"
	"fieldreport/internal/server"
	"fieldreport/internal/store"
	"fieldreport/pkg/types"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	taskRepo := store.NewTaskRepository(pool)
	userRepo := store.NewUserRepository(pool)
	adminRepo := store.NewAdminRepository(pool)
	auditRepo := store.NewAuditRepository(pool)

	tokens, err := auth.NewTokenManager(
		config.JWTSecret,
		time.Duration(config.UserTokenTTLHours)*time.Hour,
		time.Duration(config.AdminTokenTTLHours)*time.Hour,
	)
	if err != nil {
		return err
	}

	uploader, err := buildUploader(ctx, config)
	if err != nil {
		return err
	}
	intake := images.NewIntake(uploader, config.MaxPhotoWidth, config.MaxSketchWidth, config.JPEGQuality)

	mailClient, err := notify.NewMailClient(notify.MailConfig{
		Host:        config.MailHost,
		Port:        config.MailPort,
		Username:    config.MailUsername,
		Password:    config.MailPassword,
		FromName:    config.MailFromName,
		FromAddress: config.MailFromAddress,
	})
	if err != nil {
		return err
	}

	notifier := notify.NewClient(notify.NewSMSClient(notify.SMSConfig{
		APIKey:    config.SMSAPIKey,
		PartnerID: config.SMSPartnerID,
		Shortcode: config.SMSShortcode,
		URL:       config.SMSURL,
	}), mailClient)

	recorder := audit.NewRecorder(auditRepo, logger)

	cronRunner, err := reminder.Schedule(
		config.ReminderSchedule,
		config.ReminderTimezone,
		reminder.NewJob(userRepo, notifier, logger),
		logger,
	)
	if err != nil {
		return err
	}

	srv, err := server.New(
		config,
		logger,
		taskRepo,
		userRepo,
		adminRepo,
		auditRepo,
		recorder,
		tokens,
		intake,
		notifier,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-cronRunner.Stop().Done()

	return srv.Stop(shutdownCtx)
}

func buildUploader(ctx context.Context, config *types.Config) (images.Uploader, error) {
	if config.StorageBackend == "s3" {
		awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.S3Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}

		return images.NewS3Uploader(s3.NewFromConfig(awsConfig), config.S3Bucket, config.S3Region), nil
	}

	return images.NewLocalUploader(config.UploadDir), nil
}
