package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9876", "emuprobe socket address")
	mailbox := flag.String("mailbox", "", "Use the file mailbox in this directory instead of the socket")
	timeout := flag.Duration("timeout", 5*time.Second, "Time to wait for each response")
	raw := flag.Bool("raw", false, "Print the response envelope as received")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: probectl [options] [action [key=value ...]]\n\nSends one command to a running emuprobe, or starts a prompt when no action is given.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  probectl memory.readRange address=0x10 length=16\n")
		fmt.Fprintf(os.Stderr, "  probectl breakpoint.add type=write address='$0010'\n")
		fmt.Fprintf(os.Stderr, "  probectl -mailbox /tmp/emu execution.pause\n")
	}
	flag.Parse()

	var (
		tr  transport
		err error
	)
	if *mailbox != "" {
		tr = newMailboxTransport(*mailbox)
	} else {
		tr, err = dialSocket(*addr, *timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	client := NewClient(tr, *timeout)
	defer client.Close()

	if flag.NArg() == 0 {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			flag.Usage()
			os.Exit(1)
		}
		if err := interactive(client, *raw); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	params, err := parseParams(flag.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	resp, err := client.Call(flag.Arg(0), params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	printResponse(os.Stdout, resp, *raw)
	if !resp.Success {
		os.Exit(1)
	}
}

func printResponse(w io.Writer, resp *Response, raw bool) {
	if raw {
		fmt.Fprintf(w, "%+v\n", *resp)
		return
	}
	fmt.Fprintln(w, formatResponse(resp))
}

// interactive runs a line-edited prompt on the controlling terminal.
func interactive(client *Client, raw bool) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	defer term.Restore(fd, oldState)

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t := term.NewTerminal(screen, "probe> ")
	if w, h, err := term.GetSize(fd); err == nil {
		t.SetSize(w, h)
	}

	if resp, err := client.Call("session.hello", map[string]any{"clientVersion": "probectl"}); err == nil {
		fmt.Fprintln(t, formatResponse(resp))
	}

	for {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		words, err := splitCommandLine(line)
		if err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
			continue
		}
		params, err := parseParams(words[1:])
		if err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
			continue
		}
		resp, err := client.Call(words[0], params)
		if err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
			continue
		}
		printResponse(t, resp, raw)
	}
}
