package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/config"
	"github.com/Veraticus/the-receipts-must-flow/internal/money"
	"github.com/Veraticus/the-receipts-must-flow/internal/voice"
	"github.com/spf13/cobra"
)

// assistantFlags are shared by the say and chat commands.
type assistantFlags struct {
	transcripts string
}

func (f *assistantFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.transcripts, "transcripts", "",
		"read recognised speech from this file, one utterance per line (- for stdin)")
}

// newAssistant builds a voice assistant over store. The returned cleanup
// stops speech and closes the transcript source.
func (f *assistantFlags) newAssistant(cmd *cobra.Command, store voice.Recorder, speak bool) (*voice.Assistant, func(), error) {
	voiceCfg, err := config.LoadVoiceConfig()
	if err != nil {
		return nil, nil, err
	}

	opts := []voice.Option{voice.WithCurrency(voiceCfg.Currency)}
	if speak && voiceCfg.Speak {
		opts = append(opts, voice.WithSpeaker(&voice.WriterSpeaker{
			W:      cmd.ErrOrStderr(),
			Prefix: cli.MicIcon + "  ",
		}))
	}

	closeTranscripts := func() {}
	switch f.transcripts {
	case "":
	case "-":
		opts = append(opts, voice.WithRecognizer(voice.NewLineRecognizer(cmd.InOrStdin())))
	default:
		file, err := os.Open(f.transcripts)
		if err != nil {
			return nil, nil, common.NewUserError("Cannot open transcripts file", err)
		}
		closeTranscripts = func() { _ = file.Close() }
		opts = append(opts, voice.WithRecognizer(voice.NewLineRecognizer(file)))
	}

	assistant, err := voice.New(store, opts...)
	if err != nil {
		closeTranscripts()
		return nil, nil, err
	}
	return assistant, func() {
		assistant.Close()
		closeTranscripts()
	}, nil
}

func sayCmd() *cobra.Command {
	var flags assistantFlags

	cmd := &cobra.Command{
		Use:   "say [utterance...]",
		Short: "Talk to the voice concierge",
		Long: `Talk to the voice concierge. With arguments, the utterance is handled once.
With --transcripts -, every line on standard input is handled as recognised
speech. Otherwise an interactive session starts. In the session:

  :listen   take the next utterance from the speech recognizer
  :repeat   speak the last reply again
  :quit     leave`,
		Example: `  receipts say "I spent ₹450 on groceries"
  receipts say --transcripts dictation.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, b, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			assistant, cleanup, err := flags.newAssistant(cmd, store, true)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				reply, err := assistant.Process(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				printReply(out, reply)
				return nil
			}

			if flags.transcripts == "-" {
				return runDictation(cmd, assistant)
			}
			return runConversation(cmd, assistant)
		},
	}

	flags.register(cmd)
	return cmd
}

func runConversation(cmd *cobra.Command, assistant *voice.Assistant) error {
	ctx, cancel := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Ending conversation...").
		HandleInterrupts(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	reader := cli.NewNonBlockingReader(cmd.InOrStdin())

	fmt.Fprintln(out, cli.FormatTitle("AI Voice Concierge"))
	fmt.Fprintln(out, cli.FormatMessage(true, assistant.LastMessage().Content))

	for {
		fmt.Fprint(out, cli.FormatPrompt("you"))
		line, err := reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, cli.ErrInputCancelled) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		var reply voice.Reply
		switch strings.ToLower(line) {
		case ":quit", ":q", "exit":
			return nil
		case ":repeat":
			assistant.Speak(assistant.LastMessage().Content)
			continue
		case ":listen":
			reply, err = assistant.Listen(ctx)
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, cli.FormatWarning("No more transcripts to listen to"))
				continue
			}
		default:
			reply, err = assistant.Process(ctx, line)
		}
		if err != nil {
			fmt.Fprintln(out, cli.FormatError(err.Error()))
			continue
		}
		printReply(out, reply)
	}
}

// runDictation handles recognised utterances until the recognizer runs dry.
func runDictation(cmd *cobra.Command, assistant *voice.Assistant) error {
	out := cmd.OutOrStdout()
	for {
		reply, err := assistant.Listen(cmd.Context())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		printReply(out, reply)
	}
}

func printReply(w io.Writer, reply voice.Reply) {
	if reply.Text == "" {
		return
	}
	fmt.Fprintln(w, cli.FormatMessage(true, reply.Text))
	if reply.Receipt != nil {
		fmt.Fprintln(w, cli.SubtleStyle.Render(fmt.Sprintf("  %s %s · %s · %s",
			cli.ReceiptIcon, money.Format(reply.Receipt.Amount, reply.Receipt.Currency),
			reply.Receipt.Category, reply.Receipt.ID)))
	}
}
