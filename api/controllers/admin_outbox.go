package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziggy12122/STK-Bot-sub000/api/responses"
	"github.com/ziggy12122/STK-Bot-sub000/api/validators"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox"
)

// DeadLetterLister reads terminal outbox failures.
type DeadLetterLister interface {
	List(ctx context.Context, filter outbox.DeadLetterFilter) ([]models.OutboxDLQ, error)
}

type deadLetterDTO struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	ErrorReason   string          `json:"error_reason"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	AttemptCount  int             `json:"attempt_count"`
	FailedAt      time.Time       `json:"failed_at"`
}

// AdminDeadLetters surfaces events the publisher gave up on so an operator
// can tell which Discord notifications never went out.
func AdminDeadLetters(repo DeadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outbox repository unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := outbox.DeadLetterFilter{Limit: limit}
		if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
			if filter.Reason, err = enums.ParseOutboxDLQErrorReason(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason filter"))
				return
			}
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("event_type")); raw != "" {
			if filter.EventType, err = enums.ParseOutboxEventType(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event_type filter"))
				return
			}
		}
		rows, err := repo.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		out := make([]deadLetterDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, deadLetterDTO{
				ID:            row.ID,
				EventID:       row.EventID,
				EventType:     string(row.EventType),
				AggregateType: string(row.AggregateType),
				AggregateID:   row.AggregateID,
				Payload:       row.Payload,
				ErrorReason:   string(row.ErrorReason),
				ErrorMessage:  row.ErrorMessage,
				AttemptCount:  row.AttemptCount,
				FailedAt:      row.FailedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
