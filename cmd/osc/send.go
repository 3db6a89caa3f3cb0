package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chabad360/oscwire/osc"
	"github.com/chabad360/oscwire/wstransport"
)

const (
	transportUDP = "udp"
	transportTCP = "tcp"
	transportWS  = "ws"
)

func newSendCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send HOST:PORT /address [args...]",
		Short: "Send one message",
		Long: `Send one message to a server.

Arguments are typed as "tag:value" (i:1, h:1, f:2.5, d:2.5, s:text, S:symbol,
c:x, b:<hex>, t:<timetag>, g:<uuid>, v:1.2, r:1,2,3,4, m:0,144,60,127), as
the payloadless tags T, F, N and I, or as bare values: integers are int32 (or
int64 when they don't fit), other numbers float32, true and false booleans,
anything else a string. "[" and "]" enclose an array.

With --delay the message is wrapped in a bundle time tagged that far in the
future. For the ws transport the address is a ws:// URL.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, _ := cmd.Flags().GetBool("event")
			p, err := buildPacket(args[1], args[2:], a.v.GetDuration(keyDelay), event)
			if err != nil {
				return err
			}
			if err := a.send(cmd, args[0], p); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "sent %v\n", p)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("transport", "t", transportUDP, "transport: udp, tcp or ws")
	f.Duration("delay", 0, "deliver the message in a bundle this far in the future")
	f.Bool("event", false, "mark the message as an event")
	a.bind(keyTransport, f.Lookup("transport"))
	a.bind(keyDelay, f.Lookup("delay"))
	return cmd
}

// buildPacket makes a message, wrapped in a bundle due after delay when
// delay is positive.
func buildPacket(address string, words []string, delay time.Duration, event bool) (osc.Packet, error) {
	args, err := parseArguments(words)
	if err != nil {
		return nil, err
	}

	msg := osc.NewMessage(address)
	msg.IsEvent = event
	if err := msg.Append(args...); err != nil {
		return nil, err
	}

	if delay <= 0 {
		return msg, nil
	}
	return osc.NewBundleWithTime(time.Now().Add(delay), msg), nil
}

func (a *app) send(cmd *cobra.Command, addr string, p osc.Packet) error {
	switch t := a.v.GetString(keyTransport); t {
	case transportUDP:
		c, err := osc.Dial(addr, a.coderOptions()...)
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Send(p)

	case transportTCP:
		c, err := osc.DialTCP(addr, a.coderOptions()...)
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Send(p)

	case transportWS:
		c, err := wstransport.Dial(cmd.Context(), addr, a.coderOptions()...)
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Send(p)

	default:
		return fmt.Errorf("send: unknown transport %q", t)
	}
}
