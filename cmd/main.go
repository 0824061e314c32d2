package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/bamboohr"
	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/config"
	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/exchange/producer"
	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/notify"
	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/sheets"
	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/webwork"
	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.TimeFieldFormat = time.RFC3339

	parseFlags()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	mappings, err := config.LoadMappings(cfg.Sheet.MappingFile)
	if err != nil {
		log.Fatal().Err(err).Msg("mapping file error")
	}

	httpClient := &fasthttp.Client{
		Name:         "onboarding-bot",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	session := bamboohr.NewSessionManager(
		cfg.BambooHR.HeadersFile,
		&bamboohr.CommandAuthenticator{Command: cfg.Login.Command, Path: cfg.BambooHR.HeadersFile},
		log.Logger,
	)

	hrClient := bamboohr.NewClient(bamboohr.Deps{
		HTTP:    httpClient,
		Session: session,
		Config: bamboohr.Config{
			Subdomain:  cfg.BambooHR.Subdomain,
			APIKey:     cfg.BambooHR.APIKey,
			TemplateID: cfg.BambooHR.TemplateID,
			Fields:     mappings.HRFields,
		},
		Log: log.Logger,
	})

	trackerClient := webwork.NewClient(webwork.Deps{
		HTTP: httpClient,
		Config: webwork.Config{
			URL:      cfg.WebWork.URL,
			Username: cfg.WebWork.Username,
			Password: cfg.WebWork.Password,
			Teams:    cfg.WebWork.Teams,
			Role:     cfg.WebWork.Role,
			Project:  cfg.WebWork.Project,
		},
		Log: log.Logger,
	})

	source, err := sheets.NewAdapter(ctx, sheets.Config{
		SpreadsheetID:   cfg.Sheet.ID,
		Tab:             cfg.Sheet.Tab,
		CredentialsFile: cfg.Sheet.CredentialsFile,
	}, mappings.Columns, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("sheets init failed")
	}

	notifier := notify.New(cfg.Slack.Token, cfg.Slack.Channel, log.Logger)

	var events workflow.EventSink
	if cfg.Kafka.Enabled() {
		onboardingProducer, err := initOnboardingProducer(cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Msg("kafka producer init failed")
		}
		defer func() { _ = onboardingProducer.Close() }()
		events = onboardingProducer
	}

	engine := workflow.NewEngine(workflow.Deps{
		HR:       hrClient,
		Tracker:  trackerClient,
		Source:   source,
		Notifier: notifier,
		Events:   events,
		Log:      log.Logger,
	})

	log.Info().Str("sheet", cfg.Sheet.ID).Str("tab", cfg.Sheet.Tab).Msg("starting onboarding run")
	if err := engine.Run(ctx); err != nil {
		log.Error().Err(err).Msg("onboarding run failed")
		os.Exit(1)
	}
	log.Info().Msg("onboarding run finished")
}

func initOnboardingProducer(kafkaConfig config.KafkaConfig) (*producer.OnboardingProducer, error) {
	sCfg := sarama.NewConfig()
	sCfg.Version = sarama.V3_3_2_0
	sCfg.Producer.Return.Successes = true
	sCfg.Producer.RequiredAcks = sarama.WaitForAll
	sCfg.Producer.Idempotent = true
	sCfg.Net.MaxOpenRequests = 1
	sCfg.Producer.Retry.Max = 5
	sCfg.Producer.Retry.Backoff = 200 * time.Millisecond

	sp, err := sarama.NewSyncProducer(kafkaConfig.Brokers, sCfg)
	if err != nil {
		return nil, err
	}

	return producer.NewOnboardingProducer(sp, producer.Config{
		Topic:  kafkaConfig.Topic,
		Source: kafkaConfig.Source,
	}, log.Logger), nil
}

func parseFlags() {
	var envFile string

	flag.StringVar(&envFile, "env", ".env", "path to .env file")
	flag.Parse()

	godotenv.Load(envFile)
}
