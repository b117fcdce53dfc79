package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vanshika/indica/backend/internal/onboarding"
	"github.com/vanshika/indica/backend/internal/session"
)

// SessionManager resolves browsing sessions to wizards.
type SessionManager interface {
	Start(ctx context.Context, referralCode string) (session.Session, error)
	Resolve(ctx context.Context, token string) (session.Session, error)
	Abandon(ctx context.Context, token string) error
}

// CookieSettings shape the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
}

// OnboardingHandlers exposes the signup wizard over HTTP.
type OnboardingHandlers struct {
	logger      *slog.Logger
	sessions    SessionManager
	cookie      CookieSettings
	frontendURL string
}

// NewOnboardingHandlers constructs the wizard handlers. Visitors arriving via a
// referral link are redirected to frontendURL.
func NewOnboardingHandlers(logger *slog.Logger, sessions SessionManager, cookie CookieSettings, frontendURL string) *OnboardingHandlers {
	if cookie.Name == "" {
		cookie.Name = "indica_session"
	}
	if frontendURL == "" {
		frontendURL = "/"
	}
	return &OnboardingHandlers{
		logger:      logger.With("component", "onboarding_http"),
		sessions:    sessions,
		cookie:      cookie,
		frontendURL: frontendURL,
	}
}

func (h *OnboardingHandlers) handleReferralLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/r/"), "/")

	sess, err := h.sessions.Start(r.Context(), code)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.setCookie(w, sess)
	http.Redirect(w, r, h.frontendURL, http.StatusSeeOther)
}

func (h *OnboardingHandlers) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Start(r.Context(), req.ReferralCode)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.setCookie(w, sess)
	respondJSON(w, http.StatusCreated, stateEnvelope{State: newSnapshotResponse(sess.Wizard.Snapshot())})
}

func (h *OnboardingHandlers) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sess, ok := h.resolve(w, r)
		if !ok {
			return
		}
		respondJSON(w, http.StatusOK, stateEnvelope{State: newSnapshotResponse(sess.Wizard.Snapshot())})
	case http.MethodDelete:
		cookie, err := r.Cookie(h.cookie.Name)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "no onboarding session")
			return
		}
		if err := h.sessions.Abandon(r.Context(), cookie.Value); err != nil && !isSessionError(err) {
			h.logger.Error("failed to abandon session", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to abandon session")
			return
		}
		h.clearCookie(w)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

func (h *OnboardingHandlers) handleFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, http.MethodPatch)
		return
	}
	sess, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req updateFieldsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "at least one field is required")
		return
	}
	for name := range req.Fields {
		if _, err := onboarding.ParseField(name); err != nil {
			h.respondAction(w, sess.Wizard, err)
			return
		}
	}

	// Apply in form order so a postal code lookup cannot overwrite street,
	// neighborhood, city or state sent in the same request.
	for _, field := range onboarding.AllFields {
		value, ok := req.Fields[string(field)]
		if !ok {
			continue
		}
		if err := sess.Wizard.SetField(r.Context(), field, value); err != nil {
			h.respondAction(w, sess.Wizard, err)
			return
		}
	}
	h.respondAction(w, sess.Wizard, nil)
}

func (h *OnboardingHandlers) handleAdvance(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(ctx context.Context, wz *onboarding.Wizard) error {
		return wz.Advance(ctx)
	})
}

func (h *OnboardingHandlers) handleBack(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(_ context.Context, wz *onboarding.Wizard) error {
		return wz.Back()
	})
}

func (h *OnboardingHandlers) handlePlan(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(ctx context.Context, wz *onboarding.Wizard) error {
		return wz.RequestPlan(ctx)
	})
}

func (h *OnboardingHandlers) action(w http.ResponseWriter, r *http.Request, fn func(context.Context, *onboarding.Wizard) error) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	sess, ok := h.resolve(w, r)
	if !ok {
		return
	}
	h.respondAction(w, sess.Wizard, fn(r.Context(), sess.Wizard))
}

func (h *OnboardingHandlers) resolve(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no onboarding session")
		return session.Session{}, false
	}
	sess, err := h.sessions.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if isSessionError(err) {
			h.clearCookie(w)
			writeError(w, http.StatusUnauthorized, "onboarding session expired")
			return session.Session{}, false
		}
		h.logger.Error("failed to resolve session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve session")
		return session.Session{}, false
	}
	return sess, true
}

// respondAction writes the wizard state, plus the error message when err is set.
func (h *OnboardingHandlers) respondAction(w http.ResponseWriter, wz *onboarding.Wizard, err error) {
	env := stateEnvelope{State: newSnapshotResponse(wz.Snapshot())}
	if err == nil {
		respondJSON(w, http.StatusOK, env)
		return
	}
	status, msg := classifyError(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		h.logger.Error("onboarding action failed", "error", err)
	}
	env.Error = msg
	respondJSON(w, status, env)
}

func (h *OnboardingHandlers) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, onboarding.ErrMissingReferralCode) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("failed to start session", "error", err)
	writeError(w, http.StatusInternalServerError, "failed to start onboarding session")
}

func (h *OnboardingHandlers) setCookie(w http.ResponseWriter, sess session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *OnboardingHandlers) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// classifyError maps wizard errors to a status code and the message shown to the user.
func classifyError(err error) (int, string) {
	var (
		verr   *onboarding.ValidationError
		remote *onboarding.RemoteError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Error()
	case errors.As(err, &remote):
		return http.StatusBadGateway, remote.Message
	case errors.Is(err, onboarding.ErrUnknownField), errors.Is(err, onboarding.ErrMissingReferralCode):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, onboarding.ErrBusy),
		errors.Is(err, onboarding.ErrBackNotAllowed),
		errors.Is(err, onboarding.ErrAdvanceNotAllowed),
		errors.Is(err, onboarding.ErrPlanNotAvailable),
		errors.Is(err, onboarding.ErrFieldsLocked):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func isSessionError(err error) bool {
	return errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalidToken)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
