package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/utils"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 100
)

// AuditEvent is the input to AuditService.Record.
type AuditEvent struct {
	EventType   models.AuditEventType
	PerformedBy string
	TargetUser  string
	IPAddress   string
	Details     map[string]any
	Success     bool
}

// AuditQuery holds the raw, unvalidated query parameters of GET /audit-logs.
type AuditQuery struct {
	StartDate   *time.Time
	EndDate     *time.Time
	EventType   string
	PerformedBy string
	TargetUser  string
	Limit       int
	PageKey     string
}

// AuditService records and queries the audit trail.
type AuditService struct {
	store AuditStore
	now   func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// Record appends one entry. It never fails the caller: on a storage error the
// problem is logged and nil is returned.
func (s *AuditService) Record(ctx context.Context, ev AuditEvent) *models.AuditLog {
	details := ev.Details
	if details == nil {
		details = map[string]any{}
	}
	entry := &models.AuditLog{
		ID:          uuid.NewString(),
		Timestamp:   s.now().UTC(),
		EventType:   ev.EventType,
		PerformedBy: ev.PerformedBy,
		Details:     details,
		Success:     ev.Success,
	}
	if ev.TargetUser != "" {
		target := ev.TargetUser
		entry.TargetUser = &target
	}
	if ev.IPAddress != "" {
		ip := ev.IPAddress
		entry.IPAddress = &ip
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(ev.EventType)).
			Str("performed_by", ev.PerformedBy).
			Str("target_user", ev.TargetUser).
			Msg("Failed to write audit log")
		return nil
	}
	return entry
}

// Query returns one page of entries, newest first.
func (s *AuditService) Query(ctx context.Context, q AuditQuery) (*models.AuditLogPage, error) {
	filter := models.AuditLogFilter{
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
		PerformedBy: q.PerformedBy,
		TargetUser:  q.TargetUser,
	}

	if q.EventType != "" {
		et := models.AuditEventType(q.EventType)
		if !et.Valid() {
			return nil, utils.BadRequest(utils.CodeInvalidEventType, "Invalid event type").With("eventType", q.EventType)
		}
		filter.EventType = et
	}
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return nil, utils.BadRequest(utils.CodeInvalidDate, "startDate must be before endDate")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}

	if q.PageKey != "" {
		cursor, err := decodePageKey(q.PageKey)
		if err != nil {
			return nil, utils.BadRequest(utils.CodeInvalidPageKey, "Invalid page key")
		}
		filter.After = cursor
	}

	// One extra row tells us whether another page exists.
	filter.Limit = limit + 1
	entries, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := &models.AuditLogPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextPageKey = encodePageKey(models.AuditCursor{Timestamp: last.Timestamp, ID: last.ID})
	}
	return page, nil
}

// EventTypes returns the event vocabulary with display labels.
func (s *AuditService) EventTypes() []models.LabeledValue {
	return models.AuditEventTypes()
}

func encodePageKey(c models.AuditCursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodePageKey(key string) (*models.AuditCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return nil, err
	}
	var c models.AuditCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.ID == "" || c.Timestamp.IsZero() {
		return nil, errInvalidCursor
	}
	return &c, nil
}
