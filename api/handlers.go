package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"pyquest/models"
	"pyquest/service"
)

// Handler holds the services the routes delegate to
type Handler struct {
	rewards service.RewardService
	ledger  service.LedgerService
	quests  service.QuestService
	badges  service.BadgeService
	logins  service.LoginService
	now     func() time.Time
}

// NewHandler creates a new handler
func NewHandler(
	rewards service.RewardService,
	ledger service.LedgerService,
	quests service.QuestService,
	badges service.BadgeService,
	logins service.LoginService,
) *Handler {
	return &Handler{
		rewards: rewards,
		ledger:  ledger,
		quests:  quests,
		badges:  badges,
		logins:  logins,
		now:     time.Now,
	}
}

func callerID(r *http.Request) string {
	p, _ := PrincipalFrom(r.Context())
	return p.ID
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GrantReward applies a reward to any user
func (h *Handler) GrantReward(w http.ResponseWriter, r *http.Request) {
	var req GrantRewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	transaction, err := h.rewards.GrantReward(r.Context(), req.toGrant())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	p, _ := PrincipalFrom(r.Context())
	log.WithFields(log.Fields{
		"grantedBy": p.ID,
		"userID":    req.UserID,
		"diamonds":  req.Diamonds,
		"type":      req.Type,
	}).Info("Reward granted via API")

	writeJSON(w, http.StatusCreated, toTransactionDTO(transaction))
}

// RecordQuestProgress advances one of the caller's quests
func (h *Handler) RecordQuestProgress(w http.ResponseWriter, r *http.Request) {
	var req QuestProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	questType := models.QuestType(req.QuestType)
	if !questType.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown quest type %q", req.QuestType))
		return
	}

	progress, err := h.quests.RecordQuestProgress(r.Context(), callerID(r), questType, req.Increment)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toQuestProgressDTO(progress))
}

// TodayQuests lists the caller's quests for today
func (h *Handler) TodayQuests(w http.ResponseWriter, r *http.Request) {
	quests, err := h.quests.TodayQuests(r.Context(), callerID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]QuestDTO, len(quests))
	for i, q := range quests {
		dtos[i] = toQuestDTO(q)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EvaluateBadges grants the caller every badge their stats now satisfy
func (h *Handler) EvaluateBadges(w http.ResponseWriter, r *http.Request) {
	var req EvaluateBadgesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	granted, err := h.badges.EvaluateBadges(r.Context(), callerID(r), req.toStats())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]BadgeDTO, len(granted))
	for i, b := range granted {
		dtos[i] = toBadgeDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// BadgeCatalog lists every badge that can be unlocked
func (h *Handler) BadgeCatalog(w http.ResponseWriter, r *http.Request) {
	badges, err := h.badges.Catalog(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]BadgeDTO, len(badges))
	for i, b := range badges {
		dtos[i] = toBadgeDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Badge returns one catalog badge
func (h *Handler) Badge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.badges.Badge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBadgeDTO(badge))
}

// UserBadges lists the caller's unlocked badges
func (h *Handler) UserBadges(w http.ResponseWriter, r *http.Request) {
	owned, err := h.badges.UserBadges(r.Context(), callerID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]UserBadgeDTO, len(owned))
	for i, ub := range owned {
		dtos[i] = UserBadgeDTO{BadgeID: ub.BadgeID, UnlockedAt: ub.UnlockedAt}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordLogin updates the caller's login streak
func (h *Handler) RecordLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.logins.RecordLogin(r.Context(), callerID(r), h.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginDTO{
		LoginStreak:    result.LoginStreak,
		MaxLoginStreak: result.MaxLoginStreak,
		StreakExtended: result.StreakExtended,
	})
}

// SpendDiamonds debits the caller for a purchase
func (h *Handler) SpendDiamonds(w http.ResponseWriter, r *http.Request) {
	var req SpendDiamondsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transaction, err := h.ledger.SpendDiamonds(r.Context(), service.SpendRequest{
		UserID:      callerID(r),
		Amount:      req.Amount,
		Description: req.Description,
		RelatedID:   req.RelatedID,
		RelatedType: relatedType(req.RelatedType),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(transaction))
}

// Transactions returns the caller's newest ledger rows
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	history, err := h.ledger.History(r.Context(), callerID(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	dtos := make([]TransactionDTO, len(history))
	for i, t := range history {
		dtos[i] = toTransactionDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Reconciliation compares any user's ledger with their balance
func (h *Handler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ReconciliationDTO{
		UserID:          rec.UserID,
		LedgerSum:       rec.LedgerSum,
		CurrentDiamonds: rec.CurrentDiamonds,
		EntryCount:      rec.EntryCount,
		Difference:      rec.Difference(),
		Balanced:        rec.Balanced(),
	})
}

// UpsertBadge creates or replaces a catalog badge
func (h *Handler) UpsertBadge(w http.ResponseWriter, r *http.Request) {
	var req UpsertBadgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	badge := req.toBadge(chi.URLParam(r, "id"))
	if err := h.badges.UpsertBadge(r.Context(), badge); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"by":      callerID(r),
		"badgeID": badge.ID,
	}).Info("Badge saved via API")
	writeJSON(w, http.StatusOK, toBadgeDTO(badge))
}

// InvalidateBadgeCache drops the cached catalog after admin edits
func (h *Handler) InvalidateBadgeCache(w http.ResponseWriter, r *http.Request) {
	h.badges.InvalidateCatalog()
	log.WithField("by", callerID(r)).Info("Badge catalog cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}
