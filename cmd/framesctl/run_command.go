package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/port"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/archive"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/config"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/email"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/ffmpeg"
	miniostorage "github.com/video-frame-pro/video-frame-pro-processing/internal/infra/minio"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/scratch"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/usecase"
	"github.com/video-frame-pro/video-frame-pro-processing/pkg/logger"
)

func newRunCommand() *cobra.Command {
	var flags requestFlags
	var sendEmail bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one extraction in this process and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := flags.payload(cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
				Endpoint:  cfg.StorageEndpoint,
				AccessKey: cfg.StorageAccessKey,
				SecretKey: cfg.StorageSecretKey,
				UseSSL:    cfg.StorageUseSSL,
				Region:    cfg.StorageRegion,
				Bucket:    cfg.StorageBucket,
			})
			if err != nil {
				return err
			}

			var notifier port.Notifier
			if sendEmail {
				notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
			}

			uc := usecase.NewExtractFramesUseCase(
				storage,
				ffmpeg.NewExtractor(ffmpeg.ExtractorConfig{
					FFmpegPath:  cfg.FFmpegPath,
					FFprobePath: cfg.FFprobePath,
					Format:      cfg.FrameFormat,
				}, log),
				archive.NewZipBuilder(),
				scratch.NewManager(log),
				scratch.NewFileLocker(cfg.LockRetryDelay),
				notifier,
				nil, nil, nil,
				log,
				usecase.ExtractFramesConfig{
					TempDir:  cfg.TempDir,
					VideoExt: cfg.VideoExt,
					LinkTTL:  cfg.SignedLinkTTL,
				},
			)

			result := uc.Handle(cmd.Context(), raw)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if !result.Succeeded() {
				return fmt.Errorf("extraction finished with status %d", result.StatusCode)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&sendEmail, "email", false, "Email the outcome to the notification target")
	return cmd
}
