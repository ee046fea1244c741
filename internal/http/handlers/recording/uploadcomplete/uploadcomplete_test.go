package uploadcomplete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
)

// MockService реализует интерфейс uploadcomplete.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) UploadComplete(ctx context.Context, userUID, recordingID string) (string, error) {
	args := m.Called(ctx, userUID, recordingID)
	return args.String(0), args.Error(1)
}

func TestUploadCompleteHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const recID = "7b8a3b54-5c1e-4d2f-9a6b-0f1e2d3c4b5a"
	body := `{"recording_id":"` + recID + `"}`

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная постановка задачи",
			body: body,
			setupMock: func(m *MockService) {
				m.On("UploadComplete", mock.Anything, "user-1", recID).Return("job-42", nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"job_id":"job-42"`,
		},
		{
			name:           "не uuid в recording_id",
			body:           `{"recording_id":"not-a-uuid"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name: "запись не найдена",
			body: body,
			setupMock: func(m *MockService) {
				m.On("UploadComplete", mock.Anything, "user-1", recID).
					Return("", errs.ErrRecordingNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `recording not found`,
		},
		{
			name: "файл не загружен в хранилище",
			body: body,
			setupMock: func(m *MockService) {
				m.On("UploadComplete", mock.Anything, "user-1", recID).
					Return("", errs.ErrUploadNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `uploaded file not found`,
		},
		{
			name: "повторная постановка задачи",
			body: body,
			setupMock: func(m *MockService) {
				m.On("UploadComplete", mock.Anything, "user-1", recID).
					Return("", errs.ErrAlreadyEnqueued)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `already enqueued`,
		},
		{
			name: "запись не в статусе PENDING",
			body: body,
			setupMock: func(m *MockService) {
				m.On("UploadComplete", mock.Anything, "user-1", recID).
					Return("", errs.ErrInvalidRecordingState)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `not awaiting upload`,
		},
		{
			name: "ошибка сервиса",
			body: body,
			setupMock: func(m *MockService) {
				m.On("UploadComplete", mock.Anything, "user-1", recID).
					Return("", errors.New("amqp down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not enqueue`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/recordings/upload-complete", strings.NewReader(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "user-1"))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
