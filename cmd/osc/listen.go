package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chabad360/oscwire/osc"
	"github.com/chabad360/oscwire/scheduler"
	"github.com/chabad360/oscwire/wstransport"
)

func newListenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print every message received",
		Long: `Listen on one or more transports and print every message once its
bundle is due. Nested bundles with a time tag are held until that time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.listen(ctx, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("udp", defaultUDPListen, "UDP address to listen on, empty to disable")
	f.String("tcp", "", "TCP address to listen on for length-prefixed packets")
	f.String("ws", "", "HTTP address to accept WebSocket connections on")
	f.String("metrics", "", "HTTP address serving Prometheus metrics on /metrics")
	f.Bool("suppress", false, "silently drop packets that fail to decode")
	a.bind(keyUDP, f.Lookup("udp"))
	a.bind(keyTCP, f.Lookup("tcp"))
	a.bind(keyWS, f.Lookup("ws"))
	a.bind(keyMetrics, f.Lookup("metrics"))
	a.bind(keySuppress, f.Lookup("suppress"))
	return cmd
}

func (a *app) listen(ctx context.Context, out io.Writer) error {
	udpAddr, tcpAddr, wsAddr := a.v.GetString(keyUDP), a.v.GetString(keyTCP), a.v.GetString(keyWS)
	if udpAddr == "" && tcpAddr == "" && wsAddr == "" {
		return errors.New("listen: no transport enabled")
	}

	log, err := a.logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	reg := prometheus.NewRegistry()
	metrics, err := osc.NewMetrics(reg)
	if err != nil {
		return err
	}

	loop := scheduler.NewLoop(log)
	defer loop.Close()

	stream := osc.NewStream(loop,
		osc.WithCoder(a.coder()),
		osc.WithLogger(log),
		osc.WithMetrics(metrics),
		osc.WithSuppressParsingErrors(a.v.GetBool(keySuppress)),
	)
	defer stream.Close()

	p := newPrinter(out)
	stream.Messages().Subscribe(p.message, nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if udpAddr != "" {
		conn, err := net.ListenPacket("udp", udpAddr)
		if err != nil {
			return err
		}
		p.notice("listening on udp://%s", conn.LocalAddr())
		g.Go(func() error { return (&osc.Server{Stream: stream}).Serve(conn) })
		g.Go(func() error {
			<-ctx.Done()
			return conn.Close()
		})
	}

	if tcpAddr != "" {
		ln, err := net.Listen("tcp", tcpAddr)
		if err != nil {
			return err
		}
		p.notice("listening on tcp://%s", ln.Addr())
		srv := &osc.TCPServer{Stream: stream}
		g.Go(func() error { return srv.Serve(ln) })
		g.Go(func() error {
			<-ctx.Done()
			return srv.Close()
		})
	}

	if wsAddr != "" {
		h := wstransport.NewHandler(stream)
		if err := serveHTTP(ctx, g, wsAddr, h, h.Close); err != nil {
			return err
		}
		p.notice("listening on ws://%s", wsAddr)
	}

	if addr := a.v.GetString(keyMetrics); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := serveHTTP(ctx, g, addr, mux, nil); err != nil {
			return err
		}
		p.notice("serving metrics on http://%s/metrics", addr)
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		log.Error("osc: listener failed", zap.Error(err))
	}
	return err
}

// serveHTTP runs h on addr in g until ctx is done, then calls cleanup.
func serveHTTP(ctx context.Context, g *errgroup.Group, addr string, h http.Handler, cleanup func() error) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: h}
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		if cleanup != nil {
			cleanup()
		}
		return srv.Shutdown(context.Background())
	})
	return nil
}

// printer writes messages as they are forwarded. It is called from the
// scheduler goroutine and from the command goroutine.
type printer struct {
	mu  sync.Mutex
	out io.Writer

	addr, info *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:  out,
		addr: color.New(color.FgCyan, color.Bold),
		info: color.New(color.FgYellow),
	}
}

func (p *printer) message(m *osc.Message) {
	line := m.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.addr.Fprint(p.out, m.Address)
	fmt.Fprintln(p.out, strings.TrimPrefix(line, m.Address))
}

func (p *printer) notice(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.info.Fprintf(p.out, format+"\n", args...)
}
