package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsoubelet/toychain/client"
	"github.com/fsoubelet/toychain/commands"
	"github.com/fsoubelet/toychain/config"
	"github.com/fsoubelet/toychain/full_node"
	"github.com/fsoubelet/toychain/layout"
	"github.com/fsoubelet/toychain/network"
	"github.com/fsoubelet/toychain/store"
	"github.com/fsoubelet/toychain/utils"
	"github.com/fsoubelet/toychain/visualize"
	"github.com/jroimartin/gocui"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

var (
	host       *string
	port       *int
	peers      *string
	configPath *string
	debugMode  *bool
)

func init() {
	host = flag.String("host", "", "interface to serve the HTTP API on, overrides the config")
	port = flag.Int("port", 0, "port to serve the HTTP API on, overrides the config")
	peers = flag.String("peers", "", "comma separated peer urls to register at start up")
	configPath = flag.String("config_path", "full_node/cmd/config.yaml", "path to full node config")
	debugMode = flag.Bool("debug_mode", false, "Using debug mode will disable fancy GUI.")
}

// Return a gui handle if not in debug mode.
func ListenOnInput(cmd chan commands.Command, debugMode bool) *gocui.Gui {
	if debugMode {
		go ParseCommand(cmd)
		return nil
	}
	g, err := layout.CreateGui(cmd, "full_node/cmd/usage.txt")
	if err != nil {
		log.Fatalln(err)
	}
	go func() {
		if err := g.MainLoop(); err != nil {
			if err == gocui.ErrQuit {
				g.Close()
				os.Exit(0)
			}
			os.Exit(1)
		}
	}()
	return g
}

// Parse command from stdio.
func ParseCommand(cmd chan commands.Command) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		text, err := reader.ReadString('\n')
		if err != nil {
			// stdin closed, the node keeps serving.
			return
		}
		// convert CRLF to LF
		text = strings.Replace(text, "\n", "", -1)
		c, err := commands.CreateCommand(text)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		cmd <- c
	}
}

// Pass RESTART or STOP on to the mining task without blocking. ctl holds one
// signal. A STOP replaces whatever is waiting, a RESTART never displaces one.
func relaySignal(ctl chan commands.Command, c commands.Command) {
	if c.Op == commands.STOP {
		select {
		case <-ctl:
		default:
		}
	}
	select {
	case ctl <- c:
	default:
	}
}

// HandleCommand executes operator commands. Mining runs in its own goroutine,
// interrupted through ctl, so that the loop never blocks.
func HandleCommand(cmd chan commands.Command, server *full_node.FullNodeServer, out io.Writer, logger *zap.Logger) {
	// A separate control is needed to make sure cmd is non-blocking
	// when we just want to restart task.
	ctl := make(chan commands.Command, 1)
	var isRunning atomic.Bool

	startMining := func(continuous bool) {
		if !isRunning.CompareAndSwap(false, true) {
			logger.Warn("mining has already been started")
			return
		}
		// Drop a leftover signal meant for a previous task.
		select {
		case <-ctl:
		default:
		}
		go func() {
			defer isRunning.Store(false)
			for {
				_, c, err := server.Mine(ctl)
				if err != nil {
					logger.Warn("mining stopped", zap.Error(err))
				}
				if c.Op == commands.STOP || !continuous {
					return
				}
			}
		}()
	}

	for {
		c := <-cmd
		switch c.Op {
		case commands.MINE:
			startMining(false)
		case commands.START:
			startMining(true)
		case commands.RESTART, commands.STOP:
			if !isRunning.Load() {
				logger.Debug("no running mining task to be restarted or stopped")
				continue
			}
			relaySignal(ctl, c)
		case commands.RESOLVE:
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), server.GetConfig().ResolveTimeout())
				defer cancel()
				res := server.ResolveConflicts(ctx)
				logger.Info("conflicts resolved",
					zap.Stringer("outcome", res.Outcome),
					zap.Int("length", len(res.Chain)),
					zap.Int("skipped", len(res.Skipped)))
			}()
		case commands.ADD_PEER:
			res := server.RegisterPeers(c.Args)
			if len(res.Rejected) > 0 {
				fmt.Fprintf(out, "malformed peer address: %s\n", c.Args[0])
			}
		case commands.LIST_PEER:
			s, err := visualize.RenderPeers(server.GetAllPeers())
			if err != nil {
				logger.Error("failed to render peers", zap.Error(err))
				continue
			}
			fmt.Fprint(out, s)
		case commands.TRANSACT:
			amount, _ := strconv.ParseFloat(c.Args[2], 64)
			index, err := server.AddTransaction(c.Args[0], c.Args[1], amount)
			if err != nil {
				fmt.Fprintf(out, "transaction rejected: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Transaction will be added to Block %d\n", index)
		case commands.CHAIN:
			d, _ := strconv.Atoi(c.Args[0])
			s, err := visualize.RenderChainTable(server.GetChain(), d)
			if err != nil {
				logger.Error("failed to render chain", zap.Error(err))
				continue
			}
			fmt.Fprint(out, s)
		case commands.SHOW:
			d, _ := strconv.Atoi(c.Args[0])
			if err := server.Show(d); err != nil {
				logger.Error("failed to render chain graph", zap.Error(err))
			}
		default:
			logger.Warn("unrecognized command", zap.Int("op", int(c.Op)))
		}
	}
}

// Flags win over the config file.
func applyFlags(cfg *config.AppConfig) {
	if *host != "" {
		cfg.HOST = *host
	}
	if *port != 0 {
		cfg.PORT = *port
	}
	if *peers != "" {
		cfg.PEERS = append(cfg.PEERS, strings.Split(*peers, ",")...)
	}
}

func main() {
	flag.Parse()

	cfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// A command channel that non-blockingly takes external or internal command
	// and handle it correspondingly.
	cmd := make(chan commands.Command, 8)

	var out io.Writer = os.Stdout
	g := ListenOnInput(cmd, *debugMode)
	if g != nil {
		vw := layout.NewViewWriter(g, layout.LOGGER_VIEW)
		defer vw.Close()
		out = vw
	}

	logger, err := utils.NewLogger(cfg.LOG_LEVEL, cfg.DEVELOPMENT, out)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var peerStore full_node.PeerStore
	if cfg.PEER_STORE_PATH != "" {
		s, err := store.OpenPeerStore(cfg.PEER_STORE_PATH)
		if err != nil {
			logger.Fatal("failed to open peer store", zap.Error(err))
		}
		defer s.Close()
		peerStore = s
	}
	peerSet, err := full_node.NewPeerSet(peerStore, logger)
	if err != nil {
		logger.Fatal("failed to load peers", zap.Error(err))
	}

	// Create a server with peers, config and a command channel to interrupt mining when the chain is replaced.
	server := full_node.NewFullNodeServer(cfg, peerSet, client.NewFullNodeClient(cfg, logger), cmd, logger)
	if res := server.RegisterPeers(cfg.PEERS); len(res.Rejected) > 0 {
		logger.Warn("ignored malformed peers", zap.Strings("peers", res.Rejected))
	}

	go HandleCommand(cmd, server, out, logger)

	httpServer := network.NewServer(cfg.Addr(), server, logger)
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()

	if err := httpServer.Start(); err != nil {
		logger.Error("HTTP API server failed", zap.Error(err))
	}
}
