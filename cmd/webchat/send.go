package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/webchat/httpapi"
	"pkt.systems/webchat/internal/appconfig"
	"pkt.systems/webchat/schema"
)

type clientFlags struct {
	cfgPath string
	addr    string
	token   string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&f.addr, "addr", "", "relay address (defaults to http.addr from config)")
	cmd.Flags().StringVar(&f.token, "token", "", "auth token (defaults to http.auth_token from config)")
}

func (f *clientFlags) client() (*httpapi.Client, error) {
	addr := strings.TrimSpace(f.addr)
	token := strings.TrimSpace(f.token)
	if addr == "" || token == "" {
		cfg, err := appconfig.Load(f.cfgPath)
		if err != nil {
			return nil, err
		}
		if addr == "" {
			addr = cfg.HTTP.Addr
			if path := strings.Trim(cfg.HTTP.BasePath, "/"); path != "" {
				addr = "http://" + addr + "/" + path
			}
		}
		if token == "" {
			token = cfg.HTTP.AuthToken
		}
	}
	return httpapi.NewClient(addr, token)
}

type sendFlags struct {
	producer string
	actionID string
	text     string
	prompt   string
	quoteID  string
	toolID   string
	name     string
	enabled  bool
}

func newSendCmd() *cobra.Command {
	var cf clientFlags
	var sf sendFlags
	cmd := &cobra.Command{
		Use:   "send <kind>",
		Short: "Send a message to the relay and print the reply",
		Long: "Send a message to the relay as a producer. Kinds: " +
			"action.request, requestOpen, consumerReady, consumerClosed, quote.add, quote.remove, " +
			"quote.clear, quote.getAll, tools.get, tools.add, tools.update, tools.delete, tool.invoke, " +
			"toolbar.get, toolbar.update, status.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := buildMessage(schema.MessageKind(args[0]), sf, cmd.Flags().Changed("enabled"))
			if err != nil {
				return err
			}
			client, err := cf.client()
			if err != nil {
				return err
			}
			reply, err := client.Send(cmd.Context(), msg)
			if err != nil {
				return err
			}
			return printJSON(cmd, reply)
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVar(&sf.producer, "producer", "cli", "producer id")
	cmd.Flags().StringVar(&sf.actionID, "id", "", "action id (generated when empty)")
	cmd.Flags().StringVar(&sf.text, "text", "", "selected text or quote text")
	cmd.Flags().StringVar(&sf.prompt, "prompt", "", "instruction for the action or tool")
	cmd.Flags().StringVar(&sf.quoteID, "quote-id", "", "quote id")
	cmd.Flags().StringVar(&sf.toolID, "tool-id", "", "tool id")
	cmd.Flags().StringVar(&sf.name, "name", "", "tool name")
	cmd.Flags().BoolVar(&sf.enabled, "enabled", true, "toolbar enabled")
	return cmd
}

func buildMessage(kind schema.MessageKind, f sendFlags, enabledSet bool) (schema.InboundMessage, error) {
	msg := schema.InboundMessage{Kind: kind, Producer: schema.ProducerID(f.producer)}
	switch kind {
	case schema.KindActionRequest:
		msg.ActionID = schema.ActionID(f.actionID)
		msg.Text = f.text
		msg.Prompt = f.prompt
	case schema.KindQuoteAdd:
		msg.Text = f.text
	case schema.KindQuoteRemove:
		if f.quoteID == "" {
			return msg, fmt.Errorf("%s requires --quote-id", kind)
		}
		msg.QuoteID = schema.QuoteID(f.quoteID)
	case schema.KindToolsAdd, schema.KindToolsUpdate:
		msg.Tool = &schema.Tool{ID: schema.ToolID(f.toolID), Name: f.name, Prompt: f.prompt}
	case schema.KindToolsDelete:
		if f.toolID == "" {
			return msg, fmt.Errorf("%s requires --tool-id", kind)
		}
		msg.ToolID = schema.ToolID(f.toolID)
	case schema.KindToolInvoke:
		msg.ToolID = schema.ToolID(f.toolID)
		msg.Text = f.text
	case schema.KindToolbarUpdate:
		if !enabledSet {
			return msg, fmt.Errorf("%s requires --enabled", kind)
		}
		msg.Toolbar = &schema.ToolbarSettings{Enabled: f.enabled}
	case schema.KindRequestOpen, schema.KindConsumerReady, schema.KindConsumerClosed,
		schema.KindQuoteClear, schema.KindQuoteGetAll, schema.KindToolsGet, schema.KindToolbarGet, schema.KindStatus:
	default:
		return msg, fmt.Errorf("%w: %q", schema.ErrUnknownMessage, kind)
	}
	return msg, nil
}

func newStatusCmd() *cobra.Command {
	var cf clientFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print relay status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cf.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		},
	}
	cf.register(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
