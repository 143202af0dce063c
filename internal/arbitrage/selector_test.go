package arbitrage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quote(id string, home, away, draw float64) Quote {
	return Quote{
		BookmakerID:  id,
		BookmakerKey: "key-" + id,
		OddsHome:     home,
		OddsAway:     away,
		OddsDraw:     draw,
		CapturedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFindBestOdds_PicksEachOutcomeIndependently(t *testing.T) {
	quotes := []Quote{
		quote("X", 2.0, 1.8, 0),
		quote("Y", 1.9, 2.0, 0),
	}

	best, err := FindBestOdds(quotes)
	require.NoError(t, err)

	assert.Equal(t, "X", best.Home.BookmakerID)
	assert.Equal(t, "Y", best.Away.BookmakerID)
	assert.False(t, best.IsThreeWay)
	assert.Nil(t, best.Draw)
}

func TestFindBestOdds_ThreeWay(t *testing.T) {
	quotes := []Quote{
		quote("a", 3.0, 2.8, 0),
		quote("b", 2.9, 2.9, 3.3),
		quote("c", 3.1, 2.7, 3.5),
	}

	best, err := FindBestOdds(quotes)
	require.NoError(t, err)

	assert.True(t, best.IsThreeWay)
	require.NotNil(t, best.Draw)
	assert.Equal(t, "c", best.Draw.BookmakerID)
	assert.Equal(t, 3.5, best.Draw.OddsDraw)
	assert.Equal(t, "c", best.Home.BookmakerID)
	assert.Equal(t, "b", best.Away.BookmakerID)
}

func TestFindBestOdds_TieKeepsFirst(t *testing.T) {
	quotes := []Quote{
		quote("1", 2.1, 1.9, 3.2),
		quote("2", 2.1, 1.9, 3.2),
	}

	best, err := FindBestOdds(quotes)
	require.NoError(t, err)
	assert.Equal(t, "1", best.Home.BookmakerID)
	assert.Equal(t, "1", best.Away.BookmakerID)
	assert.Equal(t, "1", best.Draw.BookmakerID)
}

func TestFindBestOdds_Empty(t *testing.T) {
	_, err := FindBestOdds(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCalculateFromOddsList(t *testing.T) {
	e := NewEngine(DefaultConfig())

	t.Run("needs two quotes", func(t *testing.T) {
		calc, err := e.CalculateFromOddsList([]Quote{quote("A", 2.15, 1.95, 0)})
		assert.NoError(t, err)
		assert.Nil(t, calc)

		calc, err = e.CalculateFromOddsList(nil)
		assert.NoError(t, err)
		assert.Nil(t, calc)
	})

	t.Run("different books produce a calculation", func(t *testing.T) {
		calc, err := e.CalculateFromOddsList([]Quote{
			quote("X", 2.0, 1.8, 0),
			quote("Y", 1.9, 2.0, 0),
		})
		require.NoError(t, err)
		require.NotNil(t, calc)

		assert.Equal(t, "X", calc.BestOddsHome.BookmakerID)
		assert.Equal(t, "key-X", calc.BestOddsHome.BookmakerKey)
		assert.Equal(t, 2.0, calc.BestOddsHome.Odds)
		assert.Equal(t, "Y", calc.BestOddsAway.BookmakerID)
		assert.Equal(t, 2.0, calc.BestOddsAway.Odds)
		assert.InDelta(t, 1.0, calc.TotalImpliedProb, 1e-12)
		assert.False(t, calc.IsArbitrage)
	})

	t.Run("arbitrage from scenario quotes", func(t *testing.T) {
		calc, err := e.CalculateFromOddsList([]Quote{
			quote("A", 2.15, 1.80, 0),
			quote("B", 1.85, 1.95, 0),
		})
		require.NoError(t, err)
		require.NotNil(t, calc)
		assert.True(t, calc.IsArbitrage)
		assert.InDelta(t, 0.0221, calc.ArbitrageMargin, 1e-4)
	})

	t.Run("same bookmaker on both legs is rejected", func(t *testing.T) {
		calc, err := e.CalculateFromOddsList([]Quote{
			quote("A", 2.30, 2.10, 0),
			quote("B", 1.80, 1.70, 0),
		})
		assert.NoError(t, err)
		assert.Nil(t, calc)
	})

	t.Run("same venue allowed when it supports both sides", func(t *testing.T) {
		pm := quote("P", 2.30, 2.10, 0)
		pm.SupportsBothSidesExposure = true
		calc, err := e.CalculateFromOddsList([]Quote{pm, quote("B", 1.80, 1.70, 0)})
		require.NoError(t, err)
		require.NotNil(t, calc)
		assert.Equal(t, "P", calc.BestOddsHome.BookmakerID)
		assert.Equal(t, "P", calc.BestOddsAway.BookmakerID)
		assert.True(t, calc.IsArbitrage)
	})

	t.Run("three way dispatch attributes the draw leg", func(t *testing.T) {
		calc, err := e.CalculateFromOddsList([]Quote{
			quote("A", 3.10, 2.70, 3.20),
			quote("B", 2.80, 2.90, 3.10),
			quote("C", 2.90, 2.60, 3.40),
		})
		require.NoError(t, err)
		require.NotNil(t, calc)
		assert.True(t, calc.IsThreeWay)
		require.NotNil(t, calc.BestOddsDraw)
		assert.Equal(t, "C", calc.BestOddsDraw.BookmakerID)
		assert.Equal(t, "key-C", calc.BestOddsDraw.BookmakerKey)
		assert.Equal(t, "A", calc.BestOddsHome.BookmakerID)
		assert.Equal(t, "B", calc.BestOddsAway.BookmakerID)
		assert.True(t, calc.IsArbitrage)
	})

	t.Run("commission flows from the selected quote", func(t *testing.T) {
		a := quote("A", 2.15, 1.80, 0)
		a.Commission = 0.02
		calc, err := e.CalculateFromOddsList([]Quote{a, quote("B", 1.85, 1.95, 0)})
		require.NoError(t, err)
		require.NotNil(t, calc)
		assert.Equal(t, 0.02, calc.CommissionAdjusted)
	})

	t.Run("invalid selected odds surface as invalid input", func(t *testing.T) {
		_, err := e.CalculateFromOddsList([]Quote{
			quote("A", 0.9, 0.8, 0),
			quote("B", 0.95, 0.7, 0),
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCalculateFromOddsList_DrawMayShareBookmaker(t *testing.T) {
	e := NewEngine(DefaultConfig())

	calc, err := e.CalculateFromOddsList([]Quote{
		quote("A", 3.1, 2.5, 3.6),
		quote("B", 2.9, 3.0, 3.2),
	})
	require.NoError(t, err)
	require.NotNil(t, calc)

	assert.True(t, calc.IsThreeWay)
	assert.True(t, calc.IsArbitrage)
	assert.Equal(t, "A", calc.BestOddsHome.BookmakerID)
	assert.Equal(t, "B", calc.BestOddsAway.BookmakerID)
	require.NotNil(t, calc.BestOddsDraw)
	assert.Equal(t, "A", calc.BestOddsDraw.BookmakerID)
}
