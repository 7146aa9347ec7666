// Command harmonyctl renders and parses Harmony conversations from the
// command line, reading JSON from stdin and writing JSON (or tokens) to
// stdout — a thin wrapper over the harmony package for scripting and ad
// hoc inspection.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harmonygo/harmonygo"
	"github.com/harmonygo/harmonygo/bpetoken"
)

func loadEncoding() (*harmony.Encoding, error) {
	tok, err := bpetoken.New()
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}
	return harmony.LoadEncoding(harmony.HarmonyGptOss, tok)
}

func emit(v any) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(v)
}

func decodeStdin(v any) error {
	return json.NewDecoder(os.Stdin).Decode(v)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "harmonyctl",
		Short: "Render and parse Harmony chat conversations",
	}
	root.AddCommand(
		newStopCmd(),
		newRenderMsgCmd(),
		newRenderConvoCmd(),
		newRenderCompletionCmd(),
		newRenderTrainingCmd(),
		newParseCmd(),
		newDecodeCmd(),
	)
	return root
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Print the encoding's stop token ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := loadEncoding()
			if err != nil {
				return err
			}
			return emit(enc.StopTokens())
		},
	}
}

func newRenderMsgCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render-msg",
		Short: "Render a single message (JSON on stdin) to tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := loadEncoding()
			if err != nil {
				return err
			}
			var msg harmony.Message
			if err := decodeStdin(&msg); err != nil {
				return err
			}
			toks, err := enc.RenderMessage(msg)
			if err != nil {
				return err
			}
			return emit(toks)
		},
	}
}

func newRenderConvoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render-convo",
		Short: "Render a conversation (JSON on stdin) to tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := loadEncoding()
			if err != nil {
				return err
			}
			var convo harmony.Conversation
			if err := decodeStdin(&convo); err != nil {
				return err
			}
			toks, err := enc.RenderConversation(convo, nil)
			if err != nil {
				return err
			}
			return emit(toks)
		},
	}
}

func newRenderCompletionCmd() *cobra.Command {
	var role string
	var autoDrop bool
	cmd := &cobra.Command{
		Use:   "render-completion",
		Short: "Render a conversation plus a priming header for the next role",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := loadEncoding()
			if err != nil {
				return err
			}
			var convo harmony.Conversation
			if err := decodeStdin(&convo); err != nil {
				return err
			}
			cfg := &harmony.RenderConversationConfig{AutoDropAnalysis: autoDrop}
			toks, err := enc.RenderConversationForCompletion(convo, harmony.Role(role), cfg)
			if err != nil {
				return err
			}
			return emit(toks)
		},
	}
	cmd.Flags().StringVar(&role, "role", "assistant", "next role")
	cmd.Flags().BoolVar(&autoDrop, "auto-drop", true, "auto drop analysis before final")
	return cmd
}

func newRenderTrainingCmd() *cobra.Command {
	var autoDrop bool
	cmd := &cobra.Command{
		Use:   "render-training",
		Short: "Render a conversation in training mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := loadEncoding()
			if err != nil {
				return err
			}
			var convo harmony.Conversation
			if err := decodeStdin(&convo); err != nil {
				return err
			}
			cfg := &harmony.RenderConversationConfig{AutoDropAnalysis: autoDrop}
			toks, err := enc.RenderConversationForTraining(convo, cfg)
			if err != nil {
				return err
			}
			return emit(toks)
		},
	}
	cmd.Flags().BoolVar(&autoDrop, "auto-drop", true, "auto drop analysis before final")
	return cmd
}

func newParseCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse completion tokens (JSON array on stdin) into messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := loadEncoding()
			if err != nil {
				return err
			}
			var tokens []uint32
			if err := decodeStdin(&tokens); err != nil {
				return err
			}
			var rolePtr *harmony.Role
			if role != "" {
				r := harmony.Role(role)
				rolePtr = &r
			}
			msgs, err := enc.ParseMessagesFromCompletionTokens(tokens, rolePtr)
			if err != nil {
				return err
			}
			return emit(msgs)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "optional starting role (user|assistant|system|developer|tool)")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode",
		Short: "Decode tokens (JSON array on stdin) to text",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tokens []uint32
			if err := decodeStdin(&tokens); err != nil {
				return err
			}
			enc, err := loadEncoding()
			if err != nil {
				return err
			}
			s, err := enc.DecodeUTF8(tokens)
			if err != nil {
				return err
			}
			fmt.Println(s)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
