package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chabad360/oscwire/osc"
)

// Configuration keys. Each can also be set as OSC_<KEY> in the environment.
const (
	keyLittleEndian  = "little_endian"
	keyLogLevel      = "log_level"
	keySuppress      = "suppress_parsing_errors"
	keyUDP           = "udp"
	keyTCP           = "tcp"
	keyWS            = "ws"
	keyMetrics       = "metrics"
	keyTransport     = "transport"
	keyDelay         = "delay"
	keyJSON          = "json"
	keyEventSuffix   = "event_suffix"
	envPrefix        = "OSC"
	defaultUDPListen = "127.0.0.1:8765"
)

// app holds the state shared by all commands.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "osc",
		Short: "Send, receive and inspect OpenSoundControl packets",
		Long: `osc is a small toolbox around the OSC 1.0 wire format.

It can listen for packets over UDP, TCP and WebSocket and print every message
as bundles come due, send messages and bundles, and convert between the binary
form, hex and JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./osc.yaml or $HOME/.osc/osc.yaml)")
	pf.Bool("little-endian", false, "use little-endian numbers on the wire")
	pf.Bool("event-suffix", false, "carry the event flag as a trailing 'I' type tag")
	pf.String("log-level", osc.LogLevelNone, "log level: none, debug, info, warn or error")
	a.bind(keyLittleEndian, pf.Lookup("little-endian"))
	a.bind(keyEventSuffix, pf.Lookup("event-suffix"))
	a.bind(keyLogLevel, pf.Lookup("log-level"))

	root.AddCommand(
		newListenCmd(a),
		newSendCmd(a),
		newDecodeCmd(a),
		newEncodeCmd(a),
	)
	return root
}

// initConfig reads the config file, if any, and the environment.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.osc")
		a.v.SetConfigName("osc")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

// bind ties a flag to a configuration key.
func (a *app) bind(key string, f *pflag.Flag) {
	if err := a.v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

func (a *app) coder() *osc.Coder {
	return osc.NewCoder(a.coderOptions()...)
}

func (a *app) coderOptions() []osc.Option {
	return []osc.Option{
		osc.WithLittleEndian(a.v.GetBool(keyLittleEndian)),
		osc.WithEventSuffix(a.v.GetBool(keyEventSuffix)),
	}
}

func (a *app) logger() (*zap.Logger, error) {
	return osc.NewLogger(a.v.GetString(keyLogLevel))
}
