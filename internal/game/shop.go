package game

import (
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
	"github.com/google/uuid"
)

const ShopOfferCount = 4

type ShopOffer struct {
	ItemID    string    `json:"itemId"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Rarity    Rarity    `json:"rarity"`
	Price     int64     `json:"price"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShopRotation owns the clock that decides which offers are live. Offers for a
// window depend only on the epoch and the window index.
type ShopRotation struct {
	mu       sync.Mutex
	epoch    time.Time
	interval time.Duration
	now      func() time.Time
}

func NewShopRotation(interval time.Duration, now func() time.Time) *ShopRotation {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &ShopRotation{interval: interval, now: now}
}

// Start pins the epoch the first time it is called.
func (r *ShopRotation) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch.IsZero() {
		r.epoch = r.now()
	}
}

// Reset restarts rotation from the current instant.
func (r *ShopRotation) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch = r.now()
}

func (r *ShopRotation) window() (idx int64, expires, epoch time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch.IsZero() {
		r.epoch = r.now()
	}
	elapsed := r.now().Sub(r.epoch)
	if elapsed < 0 {
		elapsed = 0
	}
	idx = int64(elapsed / r.interval)
	return idx, r.epoch.Add(time.Duration(idx+1) * r.interval), r.epoch
}

func (r *ShopRotation) Offers(items []catalog.Item) []ShopOffer {
	idx, expires, epoch := r.window()
	seed := epoch.UnixNano() ^ (idx * 0x9E3779B9)
	rnd := mathrand.New(mathrand.NewSource(seed))

	pool := make([]catalog.Item, len(items))
	copy(pool, items)
	rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	n := ShopOfferCount
	if len(pool) < n {
		n = len(pool)
	}
	out := make([]ShopOffer, 0, n)
	for _, it := range pool[:n] {
		rarity := RollRarity(rnd.Float64())
		out = append(out, ShopOffer{
			ItemID:    it.ID,
			Name:      it.Name,
			Icon:      it.Icon,
			Rarity:    rarity,
			Price:     roundMoney(float64(it.BasePrice) * rarity.Multiplier()),
			ExpiresAt: expires,
		})
	}
	return out
}

// BuyCollectible purchases one live offer into the collection.
func BuyCollectible(s GameState, offers []ShopOffer, itemID string) (GameState, Collectible, error) {
	if s.ActiveTrade != nil {
		return s, Collectible{}, ErrTradeInProgress
	}
	var offer *ShopOffer
	for i := range offers {
		if offers[i].ItemID == itemID {
			offer = &offers[i]
			break
		}
	}
	if offer == nil {
		return s, Collectible{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if s.Balance < offer.Price {
		return s, Collectible{}, fmt.Errorf("%w: %s costs %d, balance %d", ErrInsufficientFunds, offer.Name, offer.Price, s.Balance)
	}
	c := Collectible{
		ID:            uuid.NewString(),
		ItemID:        offer.ItemID,
		Name:          offer.Name,
		Icon:          offer.Icon,
		Rarity:        offer.Rarity,
		Level:         1,
		PurchasePrice: offer.Price,
		AcquiredTurn:  s.Turn,
	}
	next := s.Clone()
	next.Balance -= offer.Price
	next.Collection = append(next.Collection, c)
	return next, c, nil
}
