package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/chabad360/oscwire/osc"
	"github.com/chabad360/oscwire/oscjson"
)

func newDecodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode HEX...",
		Short: "Decode a hex encoded packet",
		Long: `Decode a packet given as hex digits and print it. Whitespace between
the digits is ignored, so the output of hexdump-like tools can be pasted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHex(strings.Join(args, ""))
			if err != nil {
				return err
			}

			p, err := a.coder().Decode(data)
			if err != nil {
				return err
			}
			if err := osc.Materialize(p); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !a.v.GetBool(keyJSON) {
				fmt.Fprintln(out, p)
				return nil
			}
			text, err := oscjson.NewCoder(oscjson.WithCoder(a.coder())).MarshalIndent(p, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(text))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print the JSON form")
	a.bind(keyJSON, cmd.Flags().Lookup("json"))
	return cmd
}

func newEncodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode (/address [args...] | --json PACKET)",
		Short: "Print the hex encoding of a packet",
		Long: `Encode a message built from the same argument syntax as send, or a
packet in JSON form with --json, and print it as hex.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("json")

			var (
				p   osc.Packet
				err error
			)
			switch {
			case text != "":
				if len(args) > 0 {
					return fmt.Errorf("encode: --json takes no arguments")
				}
				p, err = oscjson.NewCoder(oscjson.WithCoder(a.coder())).Unmarshal([]byte(text))
			case len(args) > 0:
				delay, _ := cmd.Flags().GetDuration("delay")
				p, err = buildPacket(args[0], args[1:], delay, false)
			default:
				return fmt.Errorf("encode: need an address or --json")
			}
			if err != nil {
				return err
			}

			data, err := a.coder().Encode(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		},
	}
	cmd.Flags().String("json", "", "packet in JSON form")
	cmd.Flags().Duration("delay", 0, "wrap the message in a bundle this far in the future")
	return cmd
}

func decodeHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}
