package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	"github.com/amirphl/nightpulse/utils"
)

// ClientMetadata holds client information for audit logging and submission metadata
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// UAHash fingerprints the user agent. Only the first 120 characters count.
func (cm *ClientMetadata) UAHash() string {
	if cm == nil || cm.UserAgent == "" {
		return ""
	}
	ua := []rune(cm.UserAgent)
	if len(ua) > 120 {
		ua = ua[:120]
	}
	sum := sha256.Sum256([]byte(string(ua)))
	return hex.EncodeToString(sum[:16])
}

// IPHint keeps the network part of the client address
func (cm *ClientMetadata) IPHint() string {
	if cm == nil || cm.IPAddress == "" {
		return ""
	}
	ip := cm.IPAddress
	if i := strings.LastIndex(ip, "."); i > 0 && strings.Count(ip, ".") == 3 {
		return ip[:i] + ".0"
	}
	if parts := strings.Split(ip, ":"); len(parts) > 4 {
		return strings.Join(parts[:4], ":") + "::"
	}
	return ip
}

// ParseMode validates a mode path segment
func ParseMode(raw string) (models.VoteMode, error) {
	mode := models.VoteMode(strings.ToLower(strings.TrimSpace(raw)))
	if !mode.Valid() {
		return "", ErrInvalidMode
	}
	return mode, nil
}

// resolveNight returns key when set, the current night otherwise
func resolveNight(nights *utils.NightKeyResolver, key string, now utils.Clock) (string, error) {
	if key == "" {
		return nights.Resolve(now()), nil
	}
	if _, err := nights.Parse(key); err != nil {
		return "", ErrInvalidNightKey
	}
	return key, nil
}

type auditEntry struct {
	actorUID    string
	action      string
	targetKind  string
	targetID    string
	description string
	success     bool
	errorMsg    string
	metadata    map[string]any
}

// writeAudit stores an audit entry. Failures are logged and never fail the caller.
func writeAudit(ctx context.Context, repo repository.AuditLogRepository, entry auditEntry, cm *ClientMetadata) {
	if repo == nil {
		return
	}
	audit := &models.AuditLog{
		Action:  entry.action,
		Success: utils.ToPtr(entry.success),
	}
	if entry.actorUID != "" {
		audit.ActorUID = utils.ToPtr(entry.actorUID)
	}
	if entry.targetKind != "" {
		audit.TargetKind = utils.ToPtr(entry.targetKind)
	}
	if entry.targetID != "" {
		audit.TargetID = utils.ToPtr(entry.targetID)
	}
	if entry.description != "" {
		audit.Description = utils.ToPtr(entry.description)
	}
	if entry.errorMsg != "" {
		audit.ErrorMessage = utils.ToPtr(entry.errorMsg)
	}
	if len(entry.metadata) > 0 {
		if raw, err := json.Marshal(entry.metadata); err == nil {
			audit.Metadata = raw
		}
	}
	if cm != nil {
		if hint := cm.IPHint(); hint != "" {
			audit.IPAddress = utils.ToPtr(hint)
		}
		if cm.RequestID != "" {
			audit.RequestID = utils.ToPtr(cm.RequestID)
		}
	}
	if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok && audit.RequestID == nil && requestID != "" {
		audit.RequestID = &requestID
	}

	if err := repo.Save(ctx, audit); err != nil {
		log.Printf("audit: failed to record %s: %v", entry.action, err)
	}
}

// ToHousepartyItem converts a submission to its public shape
func ToHousepartyItem(h *models.HousepartySubmission, includeModeration bool) dto.HousepartyItem {
	item := dto.HousepartyItem{
		ID:        h.ID.String(),
		Title:     h.Title,
		Address:   h.Address,
		Notes:     h.Notes,
		Kind:      string(h.Kind),
		Lat:       h.Lat,
		Lng:       h.Lng,
		StartsAt:  h.StartsAt,
		EndsAt:    h.EndsAt,
		Night:     h.NightKey,
		Status:    string(h.Status),
		CreatedAt: h.CreatedAt,
	}
	if includeModeration {
		item.AuthorUID = h.AuthorUID
		item.HiddenAt = h.HiddenAt
		item.ModeratedAt = h.ModeratedAt
		if h.ModeratedByEmail != nil {
			item.ModeratedBy = h.ModeratedByEmail
		} else {
			item.ModeratedBy = h.ModeratedByUID
		}
	}
	return item
}
