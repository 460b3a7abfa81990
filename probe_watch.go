// probe_watch.go - Named addresses re-read on every listing

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

// WatchEntry is a watched address. Value is filled at query time only.
type WatchEntry struct {
	Address uint64 `json:"-"`
	Hex     string `json:"address"`
	Name    string `json:"name"`
	Domain  string `json:"domain,omitempty"`
	Value   *byte  `json:"value"`
	Error   string `json:"error,omitempty"`
}

type WatchList struct {
	mem     *MemoryAccess
	entries []WatchEntry
}

func NewWatchList(mem *MemoryAccess) *WatchList {
	return &WatchList{mem: mem}
}

func (w *WatchList) indexOf(addr uint64) int {
	for i, e := range w.entries {
		if e.Address == addr {
			return i
		}
	}
	return -1
}

// Add watches addr under name (default $XXXX) and returns its current
// value. Adding an address already watched renames it.
func (w *WatchList) Add(addr uint64, name, domain string) (WatchEntry, error) {
	v, err := w.mem.Read(addr, domain)
	if err != nil {
		return WatchEntry{}, err
	}
	if name == "" {
		name = formatAddress(addr)
	}
	e := WatchEntry{Address: addr, Hex: formatAddress(addr), Name: name, Domain: domain}
	if i := w.indexOf(addr); i >= 0 {
		w.entries[i] = e
	} else {
		w.entries = append(w.entries, e)
	}
	e.Value = &v
	return e, nil
}

// Remove stops watching addr and reports whether it was watched.
func (w *WatchList) Remove(addr uint64) bool {
	i := w.indexOf(addr)
	if i < 0 {
		return false
	}
	w.entries = append(w.entries[:i], w.entries[i+1:]...)
	return true
}

// Clear removes every watch and returns how many there were.
func (w *WatchList) Clear() int {
	n := len(w.entries)
	w.entries = nil
	return n
}

func (w *WatchList) Len() int { return len(w.entries) }

// List re-reads every watched address. A failed read is reported on the
// entry rather than failing the listing.
func (w *WatchList) List() []WatchEntry {
	out := make([]WatchEntry, len(w.entries))
	for i, e := range w.entries {
		v, err := w.mem.Read(e.Address, e.Domain)
		if err != nil {
			e.Error = err.Error()
		} else {
			e.Value = &v
		}
		out[i] = e
	}
	return out
}
