package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ahorro/internal/identity"
	"ahorro/internal/log"
)

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	found, err := s.svc.Friends.SearchByUsernamePrefix(r.Context(), QueryParam(r, "q"))
	if err != nil {
		writeError(w, r, err, log.ComponentFriends, log.OpSearch)
		return
	}
	OK(w, map[string]any{"users": newPublicProfileViews(found)})
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.svc.Friends.FriendProfiles(r.Context())
	if err != nil {
		writeError(w, r, err, log.ComponentFriends, log.OpList)
		return
	}
	OK(w, map[string]any{"friends": newPublicProfileViews(friends)})
}

func (s *Server) handleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req friendRequestRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	to := sanitizeInput(req.ToUID)
	if to == "" {
		BadRequestError("Falta el usuario destinatario").Write(w)
		return
	}

	ctx := r.Context()
	fr, err := s.svc.Friends.SendRequest(ctx, to)
	if err != nil {
		writeError(w, r, err, log.ComponentFriends, log.OpCreate)
		return
	}
	log.NewStructuredLogger(log.FromContext(ctx)).LogFriendRequest(ctx, log.OpCreate, fr.ID, fr.FromUID, fr.ToUID)
	Created(w, newFriendRequestView(fr))
}

func (s *Server) handleIncomingRequests(w http.ResponseWriter, r *http.Request) {
	in, err := s.svc.Friends.IncomingRequests(r.Context())
	if err != nil {
		writeError(w, r, err, log.ComponentFriends, log.OpList)
		return
	}
	OK(w, map[string]any{"requests": newIncomingViews(in)})
}

func (s *Server) handleAcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sanitizeInput(r.PathValue("id"))
	if err := s.svc.Friends.AcceptRequest(ctx, id); err != nil {
		writeError(w, r, err, log.ComponentFriends, log.OpAccept)
		return
	}
	uid, _ := identity.UIDFromContext(ctx)
	log.NewStructuredLogger(log.FromContext(ctx)).LogFriendRequest(ctx, log.OpAccept, id, uid, "")
	OK(w, map[string]any{"id": id, "status": "accepted"})
}

// handleIncomingStream sends the pending request list as Server-Sent Events:
// once on connect and again after every change.
func (s *Server) handleIncomingStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, err := s.svc.Friends.SubscribeIncoming(ctx)
	if err != nil {
		writeError(w, r, err, log.ComponentFriends, log.OpStream)
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.WarnContext(ctx, "Streaming not supported", "error", err)
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			data, err := json.Marshal(map[string]any{"requests": newIncomingViews(snap)})
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to encode stream event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: requests\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
