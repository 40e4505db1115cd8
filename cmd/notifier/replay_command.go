package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/container"
	"github.com/narwhalmedia/availability/internal/domain/media"
	"github.com/narwhalmedia/availability/internal/infrastructure/events/nats"
	"github.com/narwhalmedia/availability/pkg/config"
	"github.com/narwhalmedia/availability/pkg/logger"
)

// transitionFile is the replay input: the stored state and the state it
// changed to.
type transitionFile struct {
	Previous media.MediaItem `json:"previous"`
	Next     media.MediaItem `json:"next"`
}

type replaySummary struct {
	MediaID        uuid.UUID `json:"media_id"`
	MovieAvailable bool      `json:"movie_available,omitempty"`
	NewSeasons     []int     `json:"new_seasons,omitempty"`
	Notified       []string  `json:"notified"`
	Persisted      bool      `json:"persisted,omitempty"`
	PublishedEvent string    `json:"published_event,omitempty"`
}

func newReplayCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		file          string
		publish       bool
		persist       bool
		correlationID string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run the availability pipeline once for a recorded transition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			transition, err := loadTransition(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if correlationID == "" {
				correlationID = uuid.NewString()
			}
			ctx = logger.WithCorrelationID(ctx, correlationID)

			var summary *replaySummary
			if publish {
				summary, err = publishTransition(ctx, cfg, transition)
			} else {
				summary, err = runTransition(ctx, cfg, transition, persist)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Transition JSON file, - for stdin")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish the transition to NATS instead of running it locally")
	cmd.Flags().BoolVar(&persist, "persist", false, "Store next through the media write path and compare it against the stored state instead of previous")
	cmd.MarkFlagsMutuallyExclusive("publish", "persist")
	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "Correlation id attached to logs and messages")
	return cmd
}

func loadTransition(path string, stdin io.Reader) (transitionFile, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return transitionFile{}, err
		}
		defer f.Close()
		r = f
	}
	return readTransition(r)
}

func readTransition(r io.Reader) (transitionFile, error) {
	var t transitionFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return transitionFile{}, fmt.Errorf("decode transition: %w", err)
	}
	if t.Next.ID == uuid.Nil {
		return transitionFile{}, errors.New("transition next.id is required")
	}
	if t.Previous.ID == uuid.Nil {
		t.Previous.ID = t.Next.ID
	}
	return t, nil
}

func runTransition(ctx context.Context, cfg *config.Config, t transitionFile, persist bool) (*replaySummary, error) {
	p, cleanup, err := container.InitializePipeline(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}
	// drains queued notifications before returning
	defer cleanup()

	return handleTransition(ctx, transitionHandler(p, persist), t, persist)
}

func transitionHandler(p *container.Pipeline, persist bool) nats.TransitionHandler {
	if persist {
		return availability.NewPersistingHandler(p.Media)
	}
	return p.Trigger
}

func handleTransition(ctx context.Context, handler nats.TransitionHandler, t transitionFile, persist bool) (*replaySummary, error) {
	result, err := handler.HandleTransition(ctx, t.Previous, t.Next)
	if err != nil {
		return nil, err
	}

	summary := &replaySummary{
		MediaID:        t.Next.ID,
		MovieAvailable: result.Changes.MovieAvailable,
		NewSeasons:     result.Changes.Seasons,
		Notified:       make([]string, 0, len(result.Notified)),
		Persisted:      persist,
	}
	for _, payload := range result.Notified {
		summary.Notified = append(summary.Notified, payload.NotifyUser.Username)
	}
	return summary, nil
}

func publishTransition(ctx context.Context, cfg *config.Config, t transitionFile) (*replaySummary, error) {
	z, syncLogger, err := container.ProvideZapLogger(cfg)
	if err != nil {
		return nil, err
	}
	defer syncLogger()

	client, closeClient, err := container.ProvideNATSClient(ctx, cfg, z)
	if err != nil {
		return nil, err
	}
	defer closeClient()

	event := nats.TransitionEvent{
		EventID:    uuid.New(),
		MediaID:    t.Next.ID,
		Previous:   t.Previous,
		Next:       t.Next,
		OccurredAt: time.Now().UTC(),
	}
	if err := nats.NewPublisher(client, z).PublishTransition(ctx, event); err != nil {
		return nil, err
	}

	return &replaySummary{
		MediaID:        t.Next.ID,
		Notified:       []string{},
		PublishedEvent: event.EventID.String(),
	}, nil
}
