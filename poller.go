package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Poller keeps the StatusStore fresh. One cycle runs at a time and the next
// one starts a fixed interval after the previous one finished.
type Poller struct {
	cfg    PollConfig
	text   TextConfig
	store  *StatusStore
	client *http.Client
	prober Prober
	logger *log.Logger

	// owned by the polling goroutine
	lastMOTD   string
	lastAIMOTD string
}

// NewPoller wires a poller to its store. client and prober may be swapped in tests.
func NewPoller(cfg PollConfig, text TextConfig, store *StatusStore, client *http.Client, prober Prober, logger *log.Logger) *Poller {
	if logger == nil {
		logger = log.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.httpTimeout()}
	}
	if prober == nil {
		prober = newPingProbe(cfg, logger)
	}
	return &Poller{
		cfg:    cfg,
		text:   text,
		store:  store,
		client: client,
		prober: prober,
		logger: logger,
	}
}

// Run polls until ctx is cancelled. A failed cycle is logged and never stops the loop.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Println("Starting message fetch loop")

	for {
		if err := p.safePollOnce(ctx); err != nil {
			p.logger.Printf("Exception in fetch loop: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.interval()):
		}
	}
}

func (p *Poller) safePollOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panicked: %v", r)
		}
	}()
	return p.PollOnce(ctx)
}

// PollOnce runs exactly one fetch cycle and publishes what it learned.
// A non-2xx from the status endpoint publishes a single error message and
// returns the *FetchError. Transport and decode errors publish nothing
// beyond the connectivity probe, so the previous state stays on screen.
func (p *Poller) PollOnce(ctx context.Context) error {
	connected := checkInternet(p.prober, p.cfg.PingAttempts, p.logger)

	conn := p.store.Connectivity()
	if connected {
		conn.NoInternetMessage = ""
	} else {
		conn.NoInternetMessage = p.text.NoInternet
	}
	p.store.PublishConnectivity(conn)

	payload, err := fetchStatus(ctx, p.client, p.cfg.StatusEndpoint)
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			p.store.PublishMessages([]Message{{Colour: ALERT_COLOUR, Text: fetchErr.Error()}})
		}
		return err
	}

	msgs := p.statusMessages(payload)

	alert := ""
	if payload.Alert != nil {
		alert = normalizeText(*payload.Alert)
	}
	p.store.PublishAlert(alert)

	conn.Failover = *payload.ConnectionStatus != "normal"
	p.store.PublishConnectivity(conn)

	if connected {
		msgs = append(msgs, p.sleepMessages(ctx)...)
	}

	p.store.PublishMessages(msgs)
	return nil
}

// statusMessages orders the marquee: MOTD, AI MOTD, then the ticker.
func (p *Poller) statusMessages(payload statusPayload) []Message {
	msgs := make([]Message, 0, 4)

	motd := normalizeText(*payload.MOTD)
	if motd != p.lastMOTD {
		p.logger.Printf("MOTD: %s", motd)
		p.lastMOTD = motd
	}
	msgs = append(msgs, Message{Colour: MOTD_COLOUR, Text: motd})

	if payload.AIMOTD != nil {
		aiMOTD := normalizeText(*payload.AIMOTD)
		if aiMOTD != p.lastAIMOTD {
			p.logger.Printf("AI MOTD: %s", aiMOTD)
			p.lastAIMOTD = aiMOTD
		}
		msgs = append(msgs, Message{Colour: AI_MOTD_COLOUR, Text: aiMOTD})
	}

	if payload.BTC != nil {
		msgs = append(msgs, Message{Colour: BTC_COLOUR, Text: normalizeText(*payload.BTC)})
	}

	return msgs
}

// sleepMessages asks the sleep endpoint and returns what to append: nothing,
// the sleeping message, or an error message in the alert colour. SleepState
// is only published on success.
func (p *Poller) sleepMessages(ctx context.Context) []Message {
	asleep, text, err := fetchSleeping(ctx, p.client, p.cfg.SleepEndpoint)
	if err != nil {
		var fetchErr *FetchError
		msg := fmt.Sprintf("ERROR: %v", err)
		if errors.As(err, &fetchErr) {
			msg = fetchErr.Error()
		}
		p.logger.Println(msg)
		return []Message{{Colour: ALERT_COLOUR, Text: msg}}
	}

	if p.store.PublishSleep(asleep) {
		p.logger.Printf("Sleep status: %s", text)
	}
	if asleep {
		return []Message{{Colour: SLEEPING_COLOUR, Text: p.text.Sleeping}}
	}
	return nil
}
