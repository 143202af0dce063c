package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

var fixedTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestNullHelpers(t *testing.T) {
	assert.Nil(t, nullIfZero(0))
	require.NotNil(t, nullIfZero(2.5))
	assert.Equal(t, 2.5, *nullIfZero(2.5))
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", *nullIfEmpty("x"))
	assert.True(t, isNoRows(pgx.ErrNoRows))
	assert.False(t, isNoRows(errors.New("boom")))
}

func TestMigrate_AppliesEmbeddedSchema(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS bookmakers").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_PropagatesFailure(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("permission denied"))

	err := Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_init.sql")
}

func bookmakerRows() *pgxmock.Rows {
	return pgxmock.NewRows(strings.Fields("id key name type commission reliability max_stake supports_both_sides is_active created_at updated_at"))
}

func TestBookmakerRepository_Upsert(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookmakerRepository(mock)

	b := models.Bookmaker{Key: "pinnacle", Name: "Pinnacle", Type: models.BookmakerTypeBookmaker, Reliability: 90, MaxStake: 3000, IsActive: true}
	mock.ExpectQuery("INSERT INTO bookmakers").
		WithArgs("pinnacle", "Pinnacle", "bookmaker", 0.0, 90.0, 3000.0, false, true).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("bm-1"))

	id, err := repo.Upsert(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "bm-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmakerRepository_GetByKey(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookmakerRepository(mock)

	mock.ExpectQuery("FROM bookmakers WHERE key").
		WithArgs("polymarket").
		WillReturnRows(bookmakerRows().AddRow(
			"bm-pm", "polymarket", "Polymarket", models.BookmakerTypePredictionMarket,
			0.02, 80.0, 5000.0, true, true, fixedTime, fixedTime,
		))
	mock.ExpectQuery("FROM bookmakers WHERE key").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	b, err := repo.GetByKey(context.Background(), "polymarket")
	require.NoError(t, err)
	assert.Equal(t, "bm-pm", b.ID)
	assert.Equal(t, models.BookmakerTypePredictionMarket, b.Type)
	assert.True(t, b.SupportsBothSides)

	_, err = repo.GetByKey(context.Background(), "nope")
	assert.True(t, utils.IsNotFoundError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmakerRepository_List(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookmakerRepository(mock)

	mock.ExpectQuery("FROM bookmakers ORDER BY key").
		WillReturnRows(bookmakerRows().
			AddRow("1", "draftkings", "DraftKings", models.BookmakerTypeBookmaker, 0.0, 85.0, 2000.0, false, true, fixedTime, fixedTime).
			AddRow("2", "polymarket", "Polymarket", models.BookmakerTypePredictionMarket, 0.02, 80.0, 5000.0, true, true, fixedTime, fixedTime))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "draftkings", list[0].Key)
	assert.Equal(t, 0.02, list[1].Commission)
}

func TestBookmakerRepository_SeedDefaults(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookmakerRepository(mock)

	mock.ExpectBegin()
	for _, b := range models.DefaultBookmakers() {
		mock.ExpectExec("INSERT INTO bookmakers").
			WithArgs(b.Key, b.Name, string(b.Type), b.Commission, b.Reliability, b.MaxStake, b.SupportsBothSides, b.IsActive).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	for _, s := range models.DefaultSports() {
		mock.ExpectExec("INSERT INTO sports").
			WithArgs(s.Key, s.Name, s.Category, s.Active).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	for _, m := range models.DefaultMarketTypes() {
		mock.ExpectExec("INSERT INTO market_types").
			WithArgs(m.Key, m.Name, m.IsThreeWay).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.SeedDefaults(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmakerRepository_SeedDefaultsRollsBack(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookmakerRepository(mock)

	first := models.DefaultBookmakers()[0]
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookmakers").
		WithArgs(first.Key, first.Name, string(first.Type), first.Commission, first.Reliability, first.MaxStake, first.SupportsBothSides, first.IsActive).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SeedDefaults(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polymarket")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Upsert(t *testing.T) {
	mock := newMockPool(t)
	repo := NewEventRepository(mock)

	ev := models.NormalizedEvent{
		ExternalID:   "abc",
		SourceAPI:    models.SourceOddsAPI,
		SportKey:     "esports_cs2",
		HomeTeam:     "Natus Vincere",
		AwayTeam:     "FaZe Clan",
		CommenceTime: fixedTime,
		Status:       models.EventScheduled,
	}
	mock.ExpectQuery("INSERT INTO events").
		WithArgs("abc", "the_odds_api", "esports_cs2", "", "Natus Vincere", "FaZe Clan", fixedTime, "scheduled").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("ev-1"))

	id, err := repo.Upsert(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_ListUpcomingAndGet(t *testing.T) {
	mock := newMockPool(t)
	repo := NewEventRepository(mock)

	cols := strings.Fields("id external_id source_api sport_key competition home_team away_team commence_time status created_at updated_at")
	mock.ExpectQuery("FROM events").
		WithArgs(fixedTime, 10).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			"ev-1", "abc", models.SourceOddsAPI, "tennis_atp", "ATP", "Sinner", "Alcaraz",
			fixedTime.Add(time.Hour), models.EventScheduled, fixedTime, fixedTime,
		))
	mock.ExpectQuery("FROM events WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	events, err := repo.ListUpcoming(context.Background(), fixedTime, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Sinner", events[0].HomeTeam)
	assert.Equal(t, models.EventScheduled, events[0].Status)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.True(t, utils.IsNotFoundError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
