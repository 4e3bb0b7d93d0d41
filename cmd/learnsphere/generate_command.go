package main

import (
	"fmt"
	"path/filepath"

	"learnsphere/internal/completion"
	"learnsphere/internal/config"
	"learnsphere/internal/content"
	"learnsphere/internal/core"
	"learnsphere/internal/tts"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type generateOutput struct {
	Success   bool   `json:"success"`
	Topic     string `json:"topic"`
	Depth     string `json:"depth"`
	Mode      string `json:"mode"`
	Model     string `json:"model"`
	Attempts  int    `json:"attempts"`
	Content   string `json:"content"`
	Message   string `json:"message,omitempty"`
	AudioFile string `json:"audio_file,omitempty"`
	AudioSize int64  `json:"audio_size,omitempty"`
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var depth string
	var mode string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate learning content for a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.log()
			cfg, err := config.LoadServerConfigFromEnv(logger)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			client := completion.NewClient(cfg.CompletionConfig(), completion.WithLogger(logger))
			generator := content.NewGenerator(content.Config{
				Completer:   client,
				Synthesizer: tts.NewGoogleTranslate(tts.Config{}, tts.WithLogger(logger)),
				Audio:       content.NewAudioStore(cfg.AudioDir),
				Logger:      logger,
			})

			res, err := generator.Generate(cmd.Context(), content.Request{
				Topic: topic,
				Depth: core.Depth(depth),
				Mode:  core.Mode(mode),
			})
			if err != nil {
				return fmt.Errorf("%s: %w", content.ErrorKind(err), err)
			}

			out := generateOutput{
				Success:  true,
				Topic:    res.Topic,
				Depth:    string(res.Depth),
				Mode:     string(res.Mode),
				Model:    res.Model,
				Attempts: res.Attempts,
				Content:  res.Content,
				Message:  res.Message,
			}
			if res.Audio != nil {
				out.AudioFile = filepath.Join(cfg.AudioDir, res.Audio.Filename)
				out.AudioSize = res.Audio.Size
			}
			if asJSON {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, out.Content)
			if out.AudioFile != "" {
				fmt.Fprintf(w, "\nAudio saved to %s (%s)\n", out.AudioFile, humanize.Bytes(uint64(out.AudioSize)))
			}
			if out.Message != "" && out.AudioFile == "" {
				fmt.Fprintf(w, "\n%s\n", out.Message)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Generated by %s after %d attempt(s)\n", out.Model, out.Attempts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Topic to explain")
	cmd.Flags().StringVarP(&depth, "depth", "d", string(core.DepthBeginner), "Explanation depth: beginner, intermediate or advanced")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(core.ModeText), "Output mode: text, code, audio or visual")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
