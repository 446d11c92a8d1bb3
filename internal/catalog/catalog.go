// Package catalog provides the screening fixtures and seeds them into the
// session store when it is empty.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/ekaracan/cinehall/internal/hall"
)

type Movie struct {
	Title       string
	Genres      []string
	PosterURL   string
	Description string
}

var movies = []Movie{
	{
		Title:       "Interstellar",
		Genres:      []string{"Sci-Fi", "Drama"},
		PosterURL:   "https://via.placeholder.com/300x400/667eea/ffffff?text=Interstellar",
		Description: "With Earth's crops failing, a team of explorers travels through a wormhole in search of a new home for humanity.",
	},
	{
		Title:       "Inception",
		Genres:      []string{"Sci-Fi", "Action", "Thriller"},
		PosterURL:   "https://via.placeholder.com/300x400/764ba2/ffffff?text=Inception",
		Description: "A thief who steals corporate secrets through dream-sharing technology is given the inverse task of planting an idea.",
	},
	{
		Title:       "The Matrix",
		Genres:      []string{"Sci-Fi", "Action"},
		PosterURL:   "https://via.placeholder.com/300x400/48c774/ffffff?text=The+Matrix",
		Description: "A computer programmer discovers that reality as he knows it is a simulation and joins a rebellion against its controllers.",
	},
	{
		Title:       "The Dark Knight",
		Genres:      []string{"Action", "Thriller", "Crime"},
		PosterURL:   "https://via.placeholder.com/300x400/3273dc/ffffff?text=The+Dark+Knight",
		Description: "Batman raises the stakes in his war on crime with the help of Lieutenant Gordon and District Attorney Harvey Dent.",
	},
	{
		Title:       "The Shawshank Redemption",
		Genres:      []string{"Drama"},
		PosterURL:   "https://via.placeholder.com/300x400/ffdd57/333333?text=The+Shawshank+Redemption",
		Description: "A banker convicted of murdering his wife forms an unlikely friendship over the decades of his imprisonment.",
	},
	{
		Title:       "Forrest Gump",
		Genres:      []string{"Drama", "Comedy"},
		PosterURL:   "https://via.placeholder.com/300x400/f14668/ffffff?text=Forrest+Gump",
		Description: "The presidencies of Kennedy and Johnson, Vietnam, and Watergate unfold through the eyes of an Alabama man with a big heart.",
	},
}

var showtimes = []string{"10:00", "13:30", "17:00", "20:30"}

// Sessions generates a week of screenings starting at from: every movie
// plays once per day at a showtime cycling with its index.
func Sessions(layout hall.Layout, from time.Time) []domain.Session {
	sessions := make([]domain.Session, 0, 7*len(movies))
	priceRange := layout.PriceRange()

	for day := 0; day < 7; day++ {
		date := from.AddDate(0, 0, day).Format("2006-01-02")

		for idx, movie := range movies {
			sessions = append(sessions, domain.Session{
				ID:             fmt.Sprintf("session_%d_%d", day, idx),
				MovieTitle:     movie.Title,
				Genres:         movie.Genres,
				PosterURL:      movie.PosterURL,
				Description:    movie.Description,
				Date:           date,
				Time:           showtimes[idx%len(showtimes)],
				TotalSeats:     layout.TotalSeats(),
				AvailableSeats: layout.TotalSeats(),
				PriceRange:     priceRange,
				Seats:          make(map[domain.SeatID]domain.SeatRecord),
			})
		}
	}

	return sessions
}

// Seed populates the store with the generated week of sessions, but only
// when the store holds none yet.
func Seed(ctx context.Context, store domain.SessionStore, layout hall.Layout, logger *slog.Logger) error {
	existing, err := store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("checking for existing sessions: %w", err)
	}

	if len(existing) > 0 {
		return nil
	}

	sessions := Sessions(layout, time.Now())
	for i := range sessions {
		if err := store.Create(ctx, &sessions[i]); err != nil {
			return fmt.Errorf("seeding session %s: %w", sessions[i].ID, err)
		}
	}

	logger.Info("seeded session catalog", "sessions", len(sessions))

	return nil
}
