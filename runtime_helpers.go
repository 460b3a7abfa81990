// runtime_helpers.go - Host assembly helpers shared by main and tests

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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	assetProgram = "program"
	assetImage   = "image"
)

// assetKindFromExtension classifies a positional file argument.
func assetKindFromExtension(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		return assetProgram, nil
	case ".prg", ".bin", ".rom", ".ie65":
		return assetImage, nil
	default:
		return "", fmt.Errorf("unsupported extension: %s", filepath.Ext(path))
	}
}

// createHeadlessHost builds the reference host from cfg: the PRG image is
// loaded first so the frame program's top level sees the reset state.
func createHeadlessHost(cfg ProbeConfig) (*HeadlessHost, error) {
	h := NewHeadlessHost()
	if cfg.PRG != "" {
		image, err := os.ReadFile(cfg.PRG)
		if err != nil {
			return nil, fmt.Errorf("prg image: %w", err)
		}
		if err := h.LoadPRG(image); err != nil {
			return nil, fmt.Errorf("prg image %s: %w", cfg.PRG, err)
		}
	}
	if cfg.Program != "" {
		prog, err := LoadFrameProgramFile(h, cfg.Program)
		if err != nil {
			h.Close()
			return nil, err
		}
		h.SetProgram(prog)
	}
	return h, nil
}
