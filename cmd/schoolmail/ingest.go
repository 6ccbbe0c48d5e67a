package main

import (
	"github.com/spf13/cobra"

	"github.com/vsood/schoolmail/internal/blob"
	"github.com/vsood/schoolmail/internal/classify"
	"github.com/vsood/schoolmail/internal/dedup"
	"github.com/vsood/schoolmail/internal/ingest"
	"github.com/vsood/schoolmail/internal/mailbox"
	"github.com/vsood/schoolmail/internal/parser"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one batch ingestion pass over the mailbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := cfg.ValidateIngest(); err != nil {
			return err
		}

		imapClient := mailbox.NewClient(mailbox.ClientConfig{
			Server:      cfg.IMAPServer,
			User:        cfg.IMAPUser,
			Password:    cfg.IMAPPassword,
			Mailbox:     cfg.IMAPMailbox,
			DialTimeout: cfg.IMAPDialTimeout,
		}, logger)
		if err := imapClient.Connect(ctx); err != nil {
			return err
		}
		defer imapClient.Close()

		blobs, err := blob.NewStore(cfg.BlobDir)
		if err != nil {
			return err
		}

		classifier := classify.NewClient(classify.Config{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.MaxTokens,
		})

		pipeline := ingest.NewPipeline(ingest.PipelineDeps{
			DB:            db,
			Mailbox:       imapClient,
			Classifier:    classifier,
			Blobs:         blobs,
			Resolver:      dedup.NewResolver(cfg.SimilarityThreshold),
			URLs:          dedup.NewURLExtractor(cfg.URLDenylist),
			HTML:          parser.NewHTMLParser(),
			Logger:        logger,
			SenderFilters: cfg.SenderFilters,
			PageSize:      cfg.FetchPageSize,
		})

		logger.Info("starting ingestion run")
		if err := pipeline.Run(ctx); err != nil {
			return err
		}
		logger.Info("ingestion run complete")
		return nil
	},
}
