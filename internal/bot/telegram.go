package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"oracle-aggregator/internal/decimals"
	"oracle-aggregator/internal/domain"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// PriceReader is the read-only aggregator surface the bot exposes.
type PriceReader interface {
	LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error)
	Price(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error)
	Assets(ctx context.Context) ([]domain.Asset, error)
	Decimals(ctx context.Context) (uint32, error)
}

const replyTimeout = 10 * time.Second

var newBotFunc = tele.NewBot

// StartTelegramBot starts a long-polling bot answering /price and /assets.
// It is a no-op when token is empty.
func StartTelegramBot(token string, reader PriceReader) error {
	if token == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	b, err := newBotFunc(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	register(b, reader)

	log.Info().Msg("Telegram bot started")
	go b.Start()
	return nil
}

func register(b *tele.Bot, reader PriceReader) {
	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/price", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()
		return c.Send(priceReply(ctx, reader, c.Args()))
	})
	b.Handle("/assets", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()
		return c.Send(assetsReply(ctx, reader))
	})
}

func priceReply(ctx context.Context, reader PriceReader, args []string) string {
	if len(args) == 0 {
		return "Usage: /price ASSET [TIMESTAMP]\nExample: /price other:USDC"
	}
	asset, err := domain.ParseAsset(args[0])
	if err != nil {
		return fmt.Sprintf("Invalid asset: %s", args[0])
	}

	var p *domain.PriceData
	if len(args) > 1 {
		ts, perr := strconv.ParseUint(args[1], 10, 64)
		if perr != nil {
			return fmt.Sprintf("Invalid timestamp: %s", args[1])
		}
		p, err = reader.Price(ctx, asset, ts)
	} else {
		p, err = reader.LastPrice(ctx, asset)
	}
	switch {
	case errors.Is(err, domain.ErrAssetNotFound):
		return fmt.Sprintf("Unknown asset: %s\nSee /assets", asset)
	case errors.Is(err, domain.ErrAssetBlocked):
		return fmt.Sprintf("%s is blocked", asset)
	case err != nil:
		return fmt.Sprintf("Error fetching price for %s: %v", asset, err)
	case p == nil:
		return fmt.Sprintf("%s\nNo price available", asset)
	}

	dec, err := reader.Decimals(ctx)
	if err != nil {
		return fmt.Sprintf("Error fetching price for %s: %v", asset, err)
	}
	return fmt.Sprintf("%s\nPrice: %s\nAt: %s",
		asset, decimals.Format(p.Price, dec),
		time.Unix(int64(p.Timestamp), 0).UTC().Format(time.RFC3339))
}

func assetsReply(ctx context.Context, reader PriceReader) string {
	assets, err := reader.Assets(ctx)
	if err != nil {
		return fmt.Sprintf("Error listing assets: %v", err)
	}
	if len(assets) == 0 {
		return "No assets registered"
	}
	names := make([]string, len(assets))
	for i, a := range assets {
		names[i] = a.String()
	}
	return "Assets:\n" + strings.Join(names, "\n")
}
