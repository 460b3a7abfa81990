// main.go - emuprobe: headless 6502 host with the instrumentation engine attached

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ▄▄▄▄▄▄ ▄▄   ▄▄ ▄   ▄ ▄▄▄▄  ▄▄▄▄   ▄▄▄  ▄▄▄▄  ▄▄▄▄▄▄\033[0m\n\033[38;2;255;110;147m █▄▄▄   █ ▀▄▀ █ █   █ █▄▄█ █▄▄▀  █   █ █▄▄█  █▄▄▄\033[0m\n\033[38;2;255;200;147m █▄▄▄▄▄ █     █ ▀▄▄▄▀ █    █  ▀▄  ▀▄▄▄▀ █▄▄▄█ █▄▄▄▄▄\033[0m")
	fmt.Println("\nRuntime instrumentation for emulated 6502 machines.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	boilerPlate()
	logger := newLogger(os.Stderr, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("emuprobe failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg ProbeConfig, logger *slog.Logger) error {
	host, err := createHeadlessHost(cfg)
	if err != nil {
		return err
	}
	defer host.Close()

	probe := NewProbe(host, cfg.Limits(), logger)
	defer probe.Close()

	var socket *SocketTransport
	if !cfg.NoSocket {
		socket, err = NewSocketTransport(cfg.Listen, logger.With("component", "socket"))
		if err != nil {
			return err
		}
	}
	mailbox := NewFileMailbox(cfg.mailboxPath(cfg.CommandFile), cfg.mailboxPath(cfg.ResponseFile), logger.With("component", "mailbox"))
	gateway := NewGateway(probe, socket, mailbox, logger.With("component", "gateway"))
	defer gateway.Close()

	status := NewStatusPublisher(cfg.mailboxPath(cfg.StateFile), cfg.StateInterval, logger.With("component", "status"))
	driver := NewTickDriver(probe, gateway, status, cfg.TickInterval(), logger.With("component", "tick"))

	serveStats := statsViewServer(cfg.StatsView, logger)
	logger.Info("probe ready",
		"socket", !cfg.NoSocket,
		"commandFile", cfg.mailboxPath(cfg.CommandFile),
		"mailboxWatched", mailbox.Watching(),
		"statsview", serveStats != nil,
		"fps", cfg.FPS)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failing stats server cancels the tick loop so the error reaches the
	// exit status.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return driver.Run(gctx)
	})
	if serveStats != nil {
		g.Go(func() error {
			return serveStats(gctx)
		})
	}
	err = g.Wait()

	last, published := status.Last()
	logger.Info("shutting down", "frames", last.FrameCount, "lastCommandId", last.LastCommandID, "statusWrites", published)
	return err
}
