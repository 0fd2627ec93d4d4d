package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"propchat/internal/usecase"
	appErrors "propchat/pkg/errors"
	"propchat/pkg/logger"

	"github.com/go-chi/chi/v5"
)

var errInvalidBody = appErrors.InvalidArg("invalid request body")

type HttpHandler struct {
	invitationUc   usecase.InvitationUsecase
	blockUc        usecase.BlockUsecase
	friendshipUc   usecase.FriendshipUsecase
	conversationUc usecase.ConversationUsecase
	messageUc      usecase.MessageUsecase
	parties        usecase.PartyResolver
	log            *logger.Logger
}

func NewHttpHandler(
	invitationUc usecase.InvitationUsecase,
	blockUc usecase.BlockUsecase,
	friendshipUc usecase.FriendshipUsecase,
	conversationUc usecase.ConversationUsecase,
	messageUc usecase.MessageUsecase,
	parties usecase.PartyResolver,
	log *logger.Logger,
) *HttpHandler {
	if log == nil {
		log = logger.Global()
	}
	return &HttpHandler{
		invitationUc:   invitationUc,
		blockUc:        blockUc,
		friendshipUc:   friendshipUc,
		conversationUc: conversationUc,
		messageUc:      messageUc,
		parties:        parties,
		log:            log,
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

// Method Get /health
func (h *HttpHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Method Post /me
func (h *HttpHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, h.log, errMissingToken)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = claims.Username
	}
	if name == "" {
		writeError(w, r, h.log, appErrors.InvalidArg("name is required"))
		return
	}

	resident, err := h.parties.Register(r.Context(), claims.UserId, name)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusCreated, resident)
}

// Method Post /invitations
func (h *HttpHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteeId      string `json:"inviteeId"`
		InitialMessage string `json:"initialMessage"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	view, err := h.invitationUc.Create(r.Context(), PartyIdFromContext(r.Context()), req.InviteeId, req.InitialMessage)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusCreated, view)
}

// Method Get /invitations/pending
func (h *HttpHandler) PendingInvitations(w http.ResponseWriter, r *http.Request) {
	views, err := h.invitationUc.ListPending(r.Context(), PartyIdFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, views)
}

// Method Post /invitations/:id/accept
func (h *HttpHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	view, err := h.invitationUc.Accept(r.Context(), chi.URLParam(r, "id"), PartyIdFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

// Method Post /invitations/:id/decline
func (h *HttpHandler) DeclineInvitation(w http.ResponseWriter, r *http.Request) {
	if err := h.invitationUc.Decline(r.Context(), chi.URLParam(r, "id"), PartyIdFromContext(r.Context())); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Method Post /blocks
func (h *HttpHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetId string `json:"targetId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.blockUc.Block(r.Context(), PartyIdFromContext(r.Context()), req.TargetId); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Method Delete /blocks/:targetId
func (h *HttpHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.blockUc.Unblock(r.Context(), PartyIdFromContext(r.Context()), chi.URLParam(r, "targetId")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Method Get /blocks
func (h *HttpHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	parties, err := h.blockUc.ListBlocked(r.Context(), PartyIdFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, parties)
}

// Method Get /friends
func (h *HttpHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	parties, err := h.friendshipUc.ListFriends(r.Context(), PartyIdFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, parties)
}

// Method Get /conversations
func (h *HttpHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	views, err := h.conversationUc.Index(r.Context(), PartyIdFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, views)
}

// Method Post /conversations/:id/hide
func (h *HttpHandler) HideConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.conversationUc.Hide(r.Context(), chi.URLParam(r, "id"), PartyIdFromContext(r.Context())); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Method Post /conversations/:id/read
func (h *HttpHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.conversationUc.MarkRead(r.Context(), chi.URLParam(r, "id"), PartyIdFromContext(r.Context())); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Method Get /conversations/:id/messages?limit=&offset=
func (h *HttpHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.messageUc.GetMessages(r.Context(), chi.URLParam(r, "id"), PartyIdFromContext(r.Context()), limit, offset)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, messages)
}

// Method Post /conversations/:id/messages
func (h *HttpHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	message, err := h.messageUc.Send(r.Context(), chi.URLParam(r, "id"), PartyIdFromContext(r.Context()), req.Message)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeSuccess(w, http.StatusCreated, message)
}
