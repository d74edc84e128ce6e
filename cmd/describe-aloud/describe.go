package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snarg/describe-aloud/internal/config"
	"github.com/snarg/describe-aloud/internal/vision"
)

// describeOutput is printed by the describe command.
type describeOutput struct {
	Description         string `json:"description,omitempty"`
	AzureDescription    string `json:"azureDescription,omitempty"`
	GoogleDescription   string `json:"googleDescription,omitempty"`
	CombinedDescription string `json:"combinedDescription,omitempty"`
	AudioURL            string `json:"audioUrl,omitempty"`
}

func newDescribeCommand(flags *globalFlags) *cobra.Command {
	var speak bool
	var audioDir string

	cmd := &cobra.Command{
		Use:   "describe <image-file>",
		Short: "Describe a local image file and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadConfig(flags, config.Overrides{AudioDir: audioDir})
			if err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if int64(len(data)) > cfg.MaxImageBytes {
				return fmt.Errorf("%s: image is larger than %d bytes", args[0], cfg.MaxImageBytes)
			}
			if _, err := vision.Sniff(data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			a, err := buildApp(ctx, cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			desc, err := a.describer.Describe(ctx, data)
			if err != nil {
				return fmt.Errorf("describe %s: %w", args[0], err)
			}

			out := describeOutput{Description: desc.Text}
			if desc.Dual {
				out = describeOutput{
					AzureDescription:    desc.AzureDescription,
					GoogleDescription:   desc.GoogleDescription,
					CombinedDescription: desc.Combined,
				}
			}

			if speak {
				if a.speaker == nil {
					return errors.New("--speak requires TTS_API_KEY")
				}
				url, err := a.speaker.Speak(ctx, desc.Speakable())
				if err != nil {
					return fmt.Errorf("text to speech: %w", err)
				}
				out.AudioURL = url
			}

			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().BoolVar(&speak, "speak", false, "Also synthesize the description and print the audio URL")
	cmd.Flags().StringVar(&audioDir, "audio-dir", "", "Local audio directory (overrides AUDIO_DIR)")

	return cmd
}
