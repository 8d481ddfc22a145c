package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/realtime"
)

const (
	maxMessageLength    = 4000
	defaultMessageLimit = 100
)

// GET /friends
//
// getFriendsHandler lists friendships of the user in any state.
func (a *API) getFriendsHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	friendships, err := a.repo.GetFriendships(r.Context(), s.UserID)
	if err != nil {
		storeerror(w, r, err, "friendship not found")
		return
	}
	serveJSON(lo.Map(friendships, func(f model.Friendship, _ int) FriendshipResponse {
		return makeFriendship(f)
	}), w)
}

// POST /friends
//
// requestFriendHandler sends a friend request, it starts out pending.
func (a *API) requestFriendHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var req FriendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.UserID == s.UserID {
		apierror(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	if _, err := a.repo.GetUserByID(r.Context(), req.UserID); err != nil {
		storeerror(w, r, err, "user not found")
		return
	}
	f, err := a.repo.CreateFriendship(r.Context(), model.Friendship{
		RequesterID: s.UserID,
		AddresseeID: req.UserID,
		Status:      model.FriendshipPending,
	})
	if err != nil {
		storeerror(w, r, err, "friendship not found")
		return
	}
	serveJSONStatus(makeFriendship(*f), http.StatusCreated, w)
}

// PUT /friends/{friendship}
//
// respondFriendHandler accepts or declines a request addressed to the user.
func (a *API) respondFriendHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var req FriendResponseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f := a.friendship(w, r, s)
	if f == nil {
		return
	}
	if f.AddresseeID != s.UserID || f.Status != model.FriendshipPending {
		apierror(w, "not a pending request for this user", http.StatusForbidden)
		return
	}
	f.Status = model.FriendshipDeclined
	if req.Accept {
		f.Status = model.FriendshipAccepted
	}
	if err := a.repo.UpdateFriendshipStatus(r.Context(), f.ID, f.Status); err != nil {
		storeerror(w, r, err, "friendship not found")
		return
	}
	serveJSON(makeFriendship(*f), w)
}

// DELETE /friends/{friendship}
//
// deleteFriendHandler removes a friendship or withdraws a request.
func (a *API) deleteFriendHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	f := a.friendship(w, r, s)
	if f == nil {
		return
	}
	if err := a.repo.DeleteFriendship(r.Context(), f.ID); err != nil {
		storeerror(w, r, err, "friendship not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// friendship returns the friendship named in the path if the user is
// part of it.
func (a *API) friendship(w http.ResponseWriter, r *http.Request, s *auth.Session) *model.Friendship {
	f, err := a.repo.GetFriendship(r.Context(), mux.Vars(r)["friendship"])
	if err != nil {
		storeerror(w, r, err, "friendship not found")
		return nil
	}
	if f.RequesterID != s.UserID && f.AddresseeID != s.UserID {
		apierror(w, "friendship not found", http.StatusNotFound)
		return nil
	}
	return f
}

// GET /chats
func (a *API) getChatsHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	chats, err := a.repo.GetChats(r.Context(), s.UserID)
	if err != nil {
		storeerror(w, r, err, "chat not found")
		return
	}
	serveJSON(lo.Map(chats, func(c model.Chat, _ int) ChatResponse {
		return makeChat(c)
	}), w)
}

// POST /chats
//
// openChatHandler returns the direct chat with another user, creating it
// when it does not exist yet.
func (a *API) openChatHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.UserID == s.UserID {
		apierror(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	chat, err := a.repo.FindDirectChat(r.Context(), s.UserID, req.UserID)
	if err == nil {
		serveJSON(makeChat(*chat), w)
		return
	}
	if _, err := a.repo.GetUserByID(r.Context(), req.UserID); err != nil {
		storeerror(w, r, err, "user not found")
		return
	}
	chat, err = a.repo.CreateDirectChat(r.Context(), s.UserID, req.UserID)
	if err != nil {
		storeerror(w, r, err, "chat not found")
		return
	}
	serveJSONStatus(makeChat(*chat), http.StatusCreated, w)
}

// GET /chats/{chat}/messages
//
// getMessagesHandler returns the latest messages, oldest first.
func (a *API) getMessagesHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	chatID := mux.Vars(r)["chat"]
	if !a.CheckParticipant(w, r, chatID, s.UserID) {
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultMessageLimit
	}
	messages, err := a.repo.GetMessages(r.Context(), chatID, min(limit, maxListLimit))
	if err != nil {
		storeerror(w, r, err, "chat not found")
		return
	}
	serveJSON(lo.Map(messages, func(m model.Message, _ int) MessageResponse {
		return MakeMessage(m)
	}), w)
}

// POST /chats/{chat}/messages
//
// sendMessageHandler stores a text message and publishes it to the
// subscribers of the chat.
func (a *API) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var req MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || len(content) > maxMessageLength {
		apierror(w, "invalid message content", http.StatusBadRequest)
		return
	}
	chatID := mux.Vars(r)["chat"]
	if !a.CheckParticipant(w, r, chatID, s.UserID) {
		return
	}
	m, err := a.repo.InsertMessage(r.Context(), model.Message{
		ChatID:      chatID,
		SenderID:    s.UserID,
		Content:     content,
		MessageType: "text",
	})
	if err != nil {
		storeerror(w, r, err, "chat not found")
		return
	}
	response := MakeMessage(*m)
	if a.broker != nil {
		if err := realtime.PublishRow(r.Context(), a.broker, "messages",
			realtime.Filter{Column: "chat_id", Value: chatID}, response); err != nil {
			logrus.WithError(err).WithField("chat", chatID).Warn("Could not publish message")
		}
	}
	serveJSONStatus(response, http.StatusCreated, w)
}

// CheckParticipant writes a not found error unless userID takes part in chatID.
func (a *API) CheckParticipant(w http.ResponseWriter, r *http.Request, chatID, userID string) bool {
	ok, err := a.repo.IsChatParticipant(r.Context(), chatID, userID)
	if err != nil {
		storeerror(w, r, err, "chat not found")
		return false
	}
	if !ok {
		apierror(w, "chat not found", http.StatusNotFound)
		return false
	}
	return true
}
