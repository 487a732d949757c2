package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAppendTrade_Bound(t *testing.T) {
	var trades []Trade
	for i := 0; i < 200; i++ {
		trades = AppendTrade(trades, Trade{ID: int64(i)}, MaxLiveTrades)
	}

	if len(trades) != MaxLiveTrades {
		t.Fatalf("Expected %d trades, got %d", MaxLiveTrades, len(trades))
	}
	// Oldest retained entry should be #20, newest #199, oldest-first order.
	if trades[0].ID != 20 {
		t.Errorf("Expected oldest ID 20, got %d", trades[0].ID)
	}
	if trades[len(trades)-1].ID != 199 {
		t.Errorf("Expected newest ID 199, got %d", trades[len(trades)-1].ID)
	}
}

func TestUpsertKline(t *testing.T) {
	t.Run("Same Start Time Replaces In Place", func(t *testing.T) {
		klines := []Kline{
			{StartTime: 100, Close: decimal.NewFromInt(10)},
			{StartTime: 200, Close: decimal.NewFromInt(11)},
		}

		klines = UpsertKline(klines, Kline{StartTime: 100, Close: decimal.NewFromInt(12)}, MaxKlines)

		count := 0
		for _, k := range klines {
			if k.StartTime == 100 {
				count++
				if !k.Close.Equal(decimal.NewFromInt(12)) {
					t.Errorf("Expected close 12, got %v", k.Close)
				}
			}
		}
		if count != 1 {
			t.Errorf("Expected exactly one entry for startTime=100, got %d", count)
		}
		// Replacement must not reorder: the open candle keeps its slot.
		if klines[0].StartTime != 100 || klines[1].StartTime != 200 {
			t.Error("Upsert should keep positional order")
		}
	})

	t.Run("New Start Time Appends And Truncates", func(t *testing.T) {
		var klines []Kline
		for i := 0; i < MaxKlines+5; i++ {
			klines = UpsertKline(klines, Kline{StartTime: int64(i)}, MaxKlines)
		}
		if len(klines) != MaxKlines {
			t.Fatalf("Expected %d klines, got %d", MaxKlines, len(klines))
		}
		if klines[0].StartTime != 5 {
			t.Errorf("Expected oldest startTime 5, got %d", klines[0].StartTime)
		}
	})
}
