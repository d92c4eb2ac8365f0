// Command demo runs a small example app: it logs file.ready webhooks and
// exposes one custom action that asks for a language before "transcribing".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/billyshambrook/frameio-kit/internal/app"
	"github.com/billyshambrook/frameio-kit/internal/config"
	"github.com/billyshambrook/frameio-kit/internal/event"
	"github.com/billyshambrook/frameio-kit/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "demo: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	err = a.OnWebhook([]string{"file.ready"}, func(_ context.Context, ev *event.WebhookEvent) error {
		log.Info("file is ready",
			"file_id", ev.Resource.ID,
			"workspace_id", ev.Workspace.ID,
			"user_id", ev.User.ID)
		return nil
	})
	if err != nil {
		return err
	}

	err = a.OnAction("demo.transcribe", "Transcribe", "Generate a transcript for this file",
		func(_ context.Context, ev *event.ActionEvent) (event.Response, error) {
			language, _ := ev.Data["language"].(string)
			if language == "" {
				return event.Form{
					Title:       "Transcribe",
					Description: "Pick the spoken language.",
					Fields: []event.Field{
						event.NewSelectField("Language", "language", "en", []event.SelectOption{
							{Name: "English", Value: "en"},
							{Name: "French", Value: "fr"},
							{Name: "Japanese", Value: "ja"},
						}),
					},
				}, nil
			}

			log.Info("transcription requested",
				"file_id", ev.Resources[0].ID, "language", language)
			return event.Message{
				Title:       "Transcription queued",
				Description: "You will get a comment when it finishes.",
			}, nil
		})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}
