package game

import (
	"errors"
	"testing"
	"time"

	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestShopRotationWindows(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rot := NewShopRotation(15*time.Minute, clock.Now)
	rot.Start()
	items := catalog.Default().Items

	first := rot.Offers(items)
	if len(first) != ShopOfferCount {
		t.Fatalf("offers=%d", len(first))
	}
	clock.t = clock.t.Add(5 * time.Minute)
	again := rot.Offers(items)
	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("offer %d changed inside a window", i)
		}
	}
	wantExpiry := time.Date(2026, 1, 1, 12, 15, 0, 0, time.UTC)
	if !first[0].ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expires=%v want %v", first[0].ExpiresAt, wantExpiry)
	}

	clock.t = clock.t.Add(15 * time.Minute)
	later := rot.Offers(items)
	if !later[0].ExpiresAt.Equal(wantExpiry.Add(15 * time.Minute)) {
		t.Fatalf("next window expiry=%v", later[0].ExpiresAt)
	}

	byID := map[string]catalog.Item{}
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, o := range later {
		base := byID[o.ItemID].BasePrice
		if o.Price != roundMoney(float64(base)*o.Rarity.Multiplier()) {
			t.Fatalf("offer %s price %d base %d rarity %s", o.ItemID, o.Price, base, o.Rarity)
		}
	}
}

func TestBuyCollectible(t *testing.T) {
	offers := []ShopOffer{{ItemID: "golden-bull", Name: "Golden Bull", Rarity: Emerging, Price: 750}}
	s := NewGameState(nil, nil)

	if _, _, err := BuyCollectible(s, offers, "bear-plush"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("missing item err=%v", err)
	}
	poor := s
	poor.Balance = 10
	if _, _, err := BuyCollectible(poor, offers, "golden-bull"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("insufficient err=%v", err)
	}
	next, c, err := BuyCollectible(s, offers, "golden-bull")
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if next.Balance != 9250 || len(next.Collection) != 1 || c.Level != 1 || c.Rarity != Emerging {
		t.Fatalf("balance=%d collectible=%+v", next.Balance, c)
	}
}
