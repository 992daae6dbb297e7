package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/readnext/readnext/internal/messaging"
)

type mockReminderSink struct {
	mock.Mock
}

func (m *mockReminderSink) Publish(ctx context.Context, reminder messaging.DueReminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func reminderRouter(sink *mockReminderSink) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewReminderHandler(sink, testHandlerLogger())
	router := gin.New()
	router.POST("/api/v1/reminders", handler.Create)
	return router
}

func TestReminderHandler_Create(t *testing.T) {
	userID, bookID := uuid.New(), uuid.New()

	sink := new(mockReminderSink)
	sink.On("Publish", mock.Anything, mock.MatchedBy(func(r messaging.DueReminder) bool {
		return r.UserID == userID && r.BookID == bookID && !r.DueAt.IsZero()
	})).Return(nil)

	router := reminderRouter(sink)

	body := bytes.NewBufferString(`{"user_id":"` + userID.String() + `","book_id":"` + bookID.String() + `","due_at":"2026-09-14T12:00:00Z"}`)
	req, _ := http.NewRequest("POST", "/api/v1/reminders", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	sink.AssertExpectations(t)
}

func TestReminderHandler_Create_ValidatesBody(t *testing.T) {
	sink := new(mockReminderSink)
	router := reminderRouter(sink)

	for _, body := range []string{
		`{}`,
		`{"user_id":"` + uuid.NewString() + `"}`,
		`not json`,
	} {
		req, _ := http.NewRequest("POST", "/api/v1/reminders", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
	sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestReminderHandler_Create_QueueFailure(t *testing.T) {
	sink := new(mockReminderSink)
	sink.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker unreachable"))

	router := reminderRouter(sink)

	body := bytes.NewBufferString(`{"user_id":"` + uuid.NewString() + `","book_id":"` + uuid.NewString() + `","due_at":"2026-09-14T12:00:00Z"}`)
	req, _ := http.NewRequest("POST", "/api/v1/reminders", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
