package main

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rivo/uniseg"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"BitTorrent/internal/config"
	"BitTorrent/internal/statusapi"
	"BitTorrent/tracker"
)

// --------------------------------------------------------------------------------------------- //

// demoTorrent is a stand-in Torrent whose transfer counters tick down on a timer, so the demo has
// something to announce besides zeros.
type demoTorrent struct {
	infoHash [20]byte
	title    string

	mu        sync.Mutex
	remaining uint64
	down      uint64
	up        uint64
}

func newDemoTorrent(title string, size uint64) *demoTorrent {
	return &demoTorrent{
		infoHash:  sha1.Sum([]byte(title)),
		title:     title,
		remaining: size,
	}
}

func (t *demoTorrent) InfoHash() [20]byte { return t.infoHash }
func (t *demoTorrent) Title() string      { return t.title }

func (t *demoTorrent) Downloaded() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.down
}

func (t *demoTorrent) Remaining() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *demoTorrent) Uploaded() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.up
}

func (t *demoTorrent) tick(chunk uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remaining > chunk {
		t.remaining -= chunk
	} else {
		t.remaining = 0
	}
	t.down += chunk
	t.up += chunk / 4
}

// --------------------------------------------------------------------------------------------- //

// truncateTitle shortens title to fit width columns, counting grapheme clusters rather than bytes
// so multi-byte titles don't get chopped mid-character.
func truncateTitle(title string, width int) string {
	if uniseg.StringWidth(title) <= width {
		return title
	}
	gr := uniseg.NewGraphemes(title)
	out := ""
	for gr.Next() && uniseg.StringWidth(out)+1 < width {
		out += gr.Str()
	}
	return out + "…"
}

// --------------------------------------------------------------------------------------------- //

func main() {
	if err := run(); err != nil {
		log.Fatalf("[ERROR]\t%v", err)
	}
}

func run() error {
	cfg := config.Default()
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			return err
		}
		cfg = loaded
	}

	printPeers := term.IsTerminal(int(os.Stdout.Fd()))

	torrents := []*demoTorrent{
		newDemoTorrent("ubuntu-24.04-desktop-amd64.iso", 5_000_000_000),
		newDemoTorrent("debian-12.6-netinst.iso", 700_000_000),
	}

	sink := tracker.PeerSinkFunc(func(t tracker.Torrent, ip [4]byte, port uint16) {
		if !printPeers {
			return
		}
		addr := fmt.Sprintf("%d.%d.%d.%d:%d", ip[0], ip[1], ip[2], ip[3], port)
		fmt.Printf("%s peer for %s: %s\n", color.GreenString("[peer]"), truncateTitle(t.Title(), 40), addr)
	})

	client, err := tracker.NewProductionClient(tracker.Bootstrap{
		ListenAddr:   cfg.Listen,
		Sink:         sink,
		TraceEnabled: cfg.Trace,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := client.Run(ctx); err != nil {
			log.Printf("[ERROR]\treactor stopped: %v", err)
		}
	}()

	if cfg.StatusAddr != "" {
		srv := statusapi.New(client)
		go func() {
			if err := srv.ListenAndServe(cfg.StatusAddr); err != nil {
				log.Printf("[INFO]\tstatus API stopped: %v", err)
			}
		}()
	}

	bar := progressbar.Default(int64(len(cfg.Trackers) * len(torrents)))
	for _, url := range cfg.Trackers {
		for _, t := range torrents {
			if err := client.AddTorrent(url, t); err != nil {
				log.Printf("[ERROR]\t%s: %v", url, err)
			}
			lo.Must0(bar.Add(1))
		}
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			for _, t := range torrents {
				t.tick(50_000_000)
				client.AnnounceAll(t)
			}
		}
	}

	log.Printf("[INFO]\tshutting down, sending stop announces")
	for _, t := range torrents {
		client.RemoveTorrent(t)
	}

	cancel()
	wg.Wait()
	return nil
}
