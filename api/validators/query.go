package validators

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

// ParseDateRange reads start_date/end_date (YYYY-MM-DD, store local). ok is false when both are absent.
func ParseDateRange(r *http.Request, calendar *storeday.Calendar) (storeday.Range, bool, error) {
	query := r.URL.Query()
	start, end := query.Get("start_date"), query.Get("end_date")
	rng, ok, err := calendar.ParseRange(start, end)
	if err != nil {
		return storeday.Range{}, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range").
			WithDetails(map[string]any{"start_date": start, "end_date": end})
	}
	return rng, ok, nil
}

// ParsePathUUID validates a uuid route parameter.
func ParsePathUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
