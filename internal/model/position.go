package model

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Position is the tracked state of one open holding.
type Position struct {
	Symbol              string                   `gorm:"primaryKey;size:16" json:"symbol"`
	Exchange            string                   `gorm:"not null" json:"exchange"`
	EntryPrice          float64                  `gorm:"not null" json:"entry_price"`
	Quantity            int                      `gorm:"not null" json:"quantity"`
	OriginalQuantity    int                      `gorm:"not null" json:"original_quantity"`
	Score               float64                  `gorm:"not null" json:"score"`
	EntryTime           time.Time                `gorm:"not null" json:"entry_time"`
	HighestPrice        float64                  `gorm:"not null" json:"highest_price"`
	LowestPrice         float64                  `gorm:"not null" json:"lowest_price"`
	TrailingStopActive  bool                     `gorm:"not null;default:false" json:"trailing_stop_active"`
	CurrentStopLoss     float64                  `gorm:"not null" json:"current_stop_loss"`
	TakeProfitLevelsHit datatypes.JSONSlice[int] `gorm:"type:jsonb" json:"take_profit_levels_hit"`
	UpdatedAt           time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

func (p *Position) HasLevel(level int) bool {
	for _, l := range p.TakeProfitLevelsHit {
		if l == level {
			return true
		}
	}
	return false
}

func (p *Position) MarkLevel(level int) {
	if p.HasLevel(level) {
		return
	}
	p.TakeProfitLevelsHit = append(p.TakeProfitLevelsHit, level)
	sort.Ints(p.TakeProfitLevelsHit)
}

// ReturnPct is the unrealized return at price, in percent.
func (p *Position) ReturnPct(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

func (p *Position) CostBasis() float64 {
	return p.EntryPrice * float64(p.Quantity)
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (p *Position) Clone() *Position {
	c := *p
	if p.TakeProfitLevelsHit != nil {
		c.TakeProfitLevelsHit = append(datatypes.JSONSlice[int]{}, p.TakeProfitLevelsHit...)
	}
	return &c
}
