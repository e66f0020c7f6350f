package utils

import (
	"sync"
	"time"

	"github.com/scmhub/calendar"

	"market-gateway/src/logger"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// MarketHours
// -----------------------------------------------------------------------------

// MarketHours maps sources to trading calendars so poll loops can skip
// upstream fetches while a venue is closed. Sources without a configured
// calendar (crypto venues) are treated as always open.
type MarketHours struct {
	Logger    *logger.Logger
	mu        sync.RWMutex
	calendars map[string]*calendar.Calendar
}

// -----------------------------------------------------------------------------

// NewMarketHours builds the source-to-calendar mapping from configuration.
// MarketHours values are MIC codes (ISO 10383), e.g. "xnys" or "xlon".
func NewMarketHours(sources []models.MSourceConfig, log *logger.Logger) *MarketHours {
	mh := &MarketHours{
		Logger:    log,
		calendars: make(map[string]*calendar.Calendar),
	}

	for _, src := range sources {
		if src.MarketHours == "" {
			continue
		}
		cal := calendar.GetCalendar(src.MarketHours)
		if cal == nil {
			log.Warning("Unknown MIC code '%s' for source %s, treating it as always open",
				src.MarketHours, src.Name)
			continue
		}
		mh.calendars[src.Name] = cal
	}

	log.Info("MarketHours: %d of %d sources are calendar-bound", len(mh.calendars), len(sources))
	return mh
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the source's venue is open at the given time.
func (mh *MarketHours) IsOpen(source string, at time.Time) bool {
	mh.mu.RLock()
	cal, bound := mh.calendars[source]
	mh.mu.RUnlock()

	if !bound {
		return true
	}
	return cal.IsOpen(at.In(cal.Loc))
}
