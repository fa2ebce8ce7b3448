package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docseek/internal/core"
	"docseek/internal/db"
	"docseek/pkg"
)

const titleTimeout = 30 * time.Second

// writeError maps service errors to status codes.
func (srv *Server) writeError(c *gin.Context, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// createThread starts an anonymous conversation with the configured cap.
func (srv *Server) createThread(c *gin.Context) {
	thread, err := srv.store.CreateThread(c.Request.Context(), srv.messageCap)
	if err != nil {
		srv.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// getThread returns a thread with its transcript and recommendations.
func (srv *Server) getThread(c *gin.Context) {
	ctx := c.Request.Context()
	thread, err := srv.store.GetThread(ctx, c.Param("id"))
	if err != nil {
		srv.writeError(c, err)
		return
	}
	transcript, err := srv.store.RecentMessages(ctx, thread.ID, 0)
	if err != nil {
		srv.writeError(c, err)
		return
	}
	recs, err := srv.store.ListRecommendations(ctx, thread.ID)
	if err != nil {
		srv.writeError(c, err)
		return
	}
	if transcript == nil {
		transcript = []pkg.Message{}
	}
	if recs == nil {
		recs = []pkg.RecommendationRecord{}
	}
	c.JSON(http.StatusOK, pkg.ThreadDetail{Thread: thread, Transcript: transcript, Recommendations: recs})
}

// postMessage stores a patient message, generates the assistant's reply and
// persists both. Once the cap is reached only the cap message is returned.
func (srv *Server) postMessage(c *gin.Context) {
	ctx := c.Request.Context()
	var req pkg.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.writeError(c, bindError(err))
		return
	}
	content := strings.TrimSpace(req.Content)

	thread, err := srv.store.GetThread(ctx, c.Param("id"))
	if err != nil {
		srv.writeError(c, err)
		return
	}
	count, err := srv.store.CountPatientMessages(ctx, thread.ID)
	if err != nil {
		srv.writeError(c, err)
		return
	}
	if count >= thread.MessageCap {
		if _, err := srv.store.AppendMessage(ctx, thread.ID, pkg.RoleBot, core.CapMessage); err != nil {
			srv.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, pkg.ChatResponse{Reply: core.CapMessage, Capped: true})
		return
	}

	history, err := srv.store.RecentMessages(ctx, thread.ID, srv.historyLimit)
	if err != nil {
		srv.writeError(c, err)
		return
	}
	if _, err := srv.store.AppendMessage(ctx, thread.ID, pkg.RolePatient, content); err != nil {
		srv.writeError(c, err)
		return
	}
	if count == 0 {
		srv.generateTitle(ctx, thread.ID, content)
	}

	reply, err := srv.chat.Reply(ctx, history, content)
	if err != nil {
		srv.logger.Warn("chat completion failed, sending fallback reply",
			zap.String("thread_id", thread.ID), zap.Error(err))
	}
	if _, err := srv.store.AppendMessage(ctx, thread.ID, pkg.RoleBot, reply.Text); err != nil {
		srv.writeError(c, err)
		return
	}

	resp := pkg.ChatResponse{Reply: reply.Text, Capped: count+1 >= thread.MessageCap}
	if reply.Recommendation != nil {
		resp.Recommendation = reply.Recommendation.Text
		if !reply.Recommendation.Failed {
			srv.saveRecommendation(ctx, thread.ID, *reply.Request, *reply.Recommendation)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// generateTitle names the thread in the background. The request context's
// values are kept but its cancellation is not.
func (srv *Server) generateTitle(ctx context.Context, threadID, firstMessage string) {
	if srv.titles == nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	srv.background.Add(1)
	go func() {
		defer srv.background.Done()
		ctx, cancel := context.WithTimeout(bg, titleTimeout)
		defer cancel()
		title, err := srv.titles.Generate(ctx, firstMessage)
		if err != nil {
			srv.logger.Warn("title generation failed", zap.String("thread_id", threadID), zap.Error(err))
		}
		if err := srv.store.UpdateThreadTitle(ctx, threadID, title); err != nil {
			srv.logger.Error("failed to store thread title", zap.String("thread_id", threadID), zap.Error(err))
		}
	}()
}

// saveRecommendation records a recommendation against a thread and notifies
// listeners. Failures are logged; the patient already has the answer.
func (srv *Server) saveRecommendation(ctx context.Context, threadID string, req core.RecommendationRequest, rec core.Recommendation) {
	record := &pkg.RecommendationRecord{
		ThreadID:  threadID,
		Diagnosis: req.Diagnosis,
		Symptoms:  req.Symptoms,
		Severity:  string(req.Severity),
		Specialty: rec.Specialty,
		Text:      rec.Text,
	}
	if err := srv.store.SaveRecommendation(ctx, record); err != nil {
		srv.logger.Error("failed to store recommendation", zap.String("thread_id", threadID), zap.Error(err))
		return
	}
	if srv.notifier == nil {
		return
	}
	if err := srv.notifier.Notify(ctx, threadID); err != nil {
		srv.logger.Warn("failed to notify recommendation", zap.String("thread_id", threadID), zap.Error(err))
	}
}

// recommend resolves a diagnosis to doctors outside of a chat. With a
// thread_id the recommendation is also stored on that thread.
func (srv *Server) recommend(c *gin.Context) {
	ctx := c.Request.Context()
	var body pkg.RecommendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		srv.writeError(c, bindError(err))
		return
	}
	req, err := core.NewRecommendationRequest(body.Diagnosis, body.Symptoms, body.Severity, body.Location)
	if err != nil {
		srv.writeError(c, err)
		return
	}
	var threadID string
	if body.ThreadID != "" {
		thread, err := srv.store.GetThread(ctx, body.ThreadID)
		if err != nil {
			srv.writeError(c, err)
			return
		}
		threadID = thread.ID
	}

	rec, err := srv.doctors.FindDoctors(ctx, req)
	if err != nil {
		srv.writeError(c, err)
		return
	}
	if threadID != "" && !rec.Failed {
		srv.saveRecommendation(ctx, threadID, req, rec)
	}
	c.JSON(http.StatusOK, pkg.RecommendResponse{
		Recommendation: rec.Text,
		Specialty:      rec.Specialty,
		Failed:         rec.Failed,
	})
}

// listSpecialties returns the specialty keys in directory order.
func (srv *Server) listSpecialties(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"specialties": srv.doctors.Directory().Specialties()})
}

// routeDoctor finds a doctor by exact symptom and optional location.
func (srv *Server) routeDoctor(c *gin.Context) {
	var req pkg.RouteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		srv.writeError(c, bindError(err))
		return
	}
	res := srv.router.Route(strings.TrimSpace(req.Symptom), req.Location)
	resp := pkg.RouteResponse{Found: res.Found(), Reason: res.Reason}
	if res.Found() {
		resp.Doctor = res.Doctor
	}
	c.JSON(http.StatusOK, resp)
}

// streamThread sends the thread's recommendations as server-sent events:
// once on connect and again after every notification for the thread.
func (srv *Server) streamThread(c *gin.Context) {
	if srv.notifier == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "streaming requires the postgres store"})
		return
	}
	ctx := c.Request.Context()
	thread, err := srv.store.GetThread(ctx, c.Param("id"))
	if err != nil {
		srv.writeError(c, err)
		return
	}
	events, err := srv.notifier.Listen(ctx)
	if err != nil {
		srv.writeError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	if !srv.sendRecommendations(c, thread.ID) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			if id != thread.ID {
				continue
			}
			if !srv.sendRecommendations(c, thread.ID) {
				return
			}
		}
	}
}

func (srv *Server) sendRecommendations(c *gin.Context, threadID string) bool {
	recs, err := srv.store.ListRecommendations(c.Request.Context(), threadID)
	if err != nil {
		srv.logger.Error("failed to load recommendations for stream", zap.String("thread_id", threadID), zap.Error(err))
		return false
	}
	if recs == nil {
		recs = []pkg.RecommendationRecord{}
	}
	c.SSEvent("recommendations", recs)
	c.Writer.Flush()
	return true
}
